package link

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// vmessJSON is the v2rayN share payload. port and aid show up as both
// numbers and strings in the wild.
type vmessJSON struct {
	V      interface{} `json:"v,omitempty"`
	Ps     string      `json:"ps"`
	Add    string      `json:"add"`
	Port   interface{} `json:"port"`
	Id     string      `json:"id"`
	Aid    interface{} `json:"aid"`
	Scy    string      `json:"scy,omitempty"`
	Sc     string      `json:"sc,omitempty"`
	Cipher string      `json:"cipher,omitempty"`
	Net    string      `json:"net"`
	Type   string      `json:"type"`
	Host   string      `json:"host"`
	Path   string      `json:"path"`
	Tls    string      `json:"tls"`
	Sni    string      `json:"sni,omitempty"`
	Alpn   string      `json:"alpn,omitempty"`
	Fp     string      `json:"fp,omitempty"`
}

// ParseVMess parses vmess://<base64 json>. Every decode failure is reported
// as InvalidVmessPayload.
func ParseVMess(raw string) (*Descriptor, error) {
	body, ok := trimScheme(cleanLink(raw), "vmess")
	if !ok {
		return nil, newError(KindInvalidVmessPayload, "missing vmess:// prefix", nil)
	}

	payload, err := DecodeBase64(body)
	if err != nil {
		return nil, newError(KindInvalidVmessPayload, "", err)
	}

	var v vmessJSON
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, newError(KindInvalidVmessPayload, "", err)
	}
	if v.Add == "" {
		return nil, newError(KindInvalidVmessPayload, "missing address", nil)
	}
	port, ok := parsePort(scalar(v.Port))
	if !ok {
		return nil, newError(KindInvalidVmessPayload, "invalid port", nil)
	}
	aid, err := strconv.Atoi(scalar(v.Aid))
	if err != nil {
		aid = 0
	}

	d := &Descriptor{
		Name:        firstNonEmpty(unescape(v.Ps), "VMess Server"),
		Host:        strings.Trim(v.Add, "[]"),
		Port:        port,
		Network:     firstNonEmpty(v.Net, "tcp"),
		Path:        v.Path,
		HostHeader:  firstNonEmpty(v.Host, v.Add),
		Fingerprint: v.Fp,
		ALPN:        v.Alpn,
	}
	if d.Network == "ws" && d.Path == "" {
		d.Path = "/"
	}
	if d.Network == "grpc" {
		d.ServiceName = v.Path
	}
	d.SNI = firstNonEmpty(v.Sni, d.HostHeader, d.Host)

	d.Proto = VMess{
		UUID:       v.Id,
		AlterID:    aid,
		Cipher:     firstNonEmpty(v.Sc, v.Scy, v.Cipher, "auto"),
		TLS:        v.Tls == "tls",
		HeaderType: firstNonEmpty(v.Type, "none"),
	}
	return d, nil
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
