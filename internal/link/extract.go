package link

import (
	"bufio"
	"regexp"
	"strings"
)

var regexLink = regexp.MustCompile(`(?i)(vmess|vless|trojan|ss)://[a-zA-Z0-9_\-\.\:@\?=&%#+/;\[\]~!*'()]+`)

// Extract pulls share links out of free text such as a pasted message or a
// decoded subscription body, deduplicated in order of appearance.
func Extract(text string) []string {
	var links []string
	text = strings.ReplaceAll(text, "\r\n", "\n")
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		for _, match := range regexLink.FindAllString(line, -1) {
			clean := strings.TrimRight(match, ".,;)\"'")
			if clean != "" {
				links = append(links, clean)
			}
		}
	}
	return dedupe(links)
}

// SplitList splits a comma separated list of links, dropping blanks.
func SplitList(s string) []string {
	var links []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			links = append(links, part)
		}
	}
	return links
}

func dedupe(input []string) []string {
	seen := make(map[string]bool, len(input))
	list := []string{}
	for _, entry := range input {
		if !seen[entry] {
			seen[entry] = true
			list = append(list, entry)
		}
	}
	return list
}
