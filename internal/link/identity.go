package link

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Hash identifies the endpoint a descriptor points at. Display name, SNI
// and other cosmetic fields are excluded so renamed copies hash the same.
func (d *Descriptor) Hash() string {
	parts := []string{
		string(d.Type()),
		strings.ToLower(d.Host),
		strconv.Itoa(d.Port),
	}

	switch p := d.Proto.(type) {
	case VLESS:
		security := strings.ToLower(p.Security)
		if security == "none" {
			security = ""
		}
		parts = append(parts, p.UUID, security, p.Flow, p.PublicKey, p.ShortID)
	case VMess:
		header := strings.ToLower(p.HeaderType)
		if header == "none" {
			header = ""
		}
		parts = append(parts, p.UUID, strings.ToLower(p.Cipher), strconv.FormatBool(p.TLS), header)
	case Trojan:
		parts = append(parts, p.Password)
	case Shadowsocks:
		parts = append(parts, strings.ToLower(p.Method), p.Password, p.Plugin, p.Obfs, p.ObfsHost)
	}

	// Empty network implies tcp
	network := strings.ToLower(d.Network)
	if network == "" {
		network = "tcp"
	}
	parts = append(parts, network, d.Path, d.ServiceName)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
