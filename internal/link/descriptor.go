package link

// Type names a supported share-link protocol.
type Type string

const (
	TypeVLESS       Type = "vless"
	TypeVMess       Type = "vmess"
	TypeTrojan      Type = "trojan"
	TypeShadowsocks Type = "ss"
)

// Descriptor is the normalized form of a single share link.
// Common endpoint, transport and TLS fields live here; protocol specific
// fields live in Proto, which is always one of VLESS, VMess, Trojan or
// Shadowsocks (held by value).
type Descriptor struct {
	Name string
	Host string // without IPv6 brackets
	Port int

	// Transport
	Network     string // tcp, ws, grpc
	Path        string // ws path
	HostHeader  string // ws Host header
	ServiceName string // grpc

	// TLS
	SNI           string
	Fingerprint   string // utls identity
	ALPN          string // comma joined
	AllowInsecure bool

	Proto Protocol
}

// Protocol is implemented only by the variant types in this package.
type Protocol interface {
	Type() Type
	isProtocol()
}

type VLESS struct {
	UUID       string
	Security   string // none, tls, reality
	Flow       string
	Encryption string

	// REALITY
	PublicKey string // pbk
	ShortID   string // sid
	SpiderX   string // spx
}

type VMess struct {
	UUID    string
	AlterID int
	Cipher  string
	TLS     bool
	// HeaderType is the payload's inner "type" key (e.g. http obfuscation
	// over tcp). It never overrides Network.
	HeaderType string
}

type Trojan struct {
	Password string
}

type Shadowsocks struct {
	Method   string
	Password string
	Plugin   string // verbatim plugin mini-DSL, see ParsePlugin
	Obfs     string // legacy obfs param
	ObfsHost string // legacy obfs-host param
}

func (VLESS) Type() Type       { return TypeVLESS }
func (VMess) Type() Type       { return TypeVMess }
func (Trojan) Type() Type      { return TypeTrojan }
func (Shadowsocks) Type() Type { return TypeShadowsocks }

func (VLESS) isProtocol()       {}
func (VMess) isProtocol()       {}
func (Trojan) isProtocol()      {}
func (Shadowsocks) isProtocol() {}

// Type returns the protocol of the descriptor, or "" if Proto is unset.
func (d *Descriptor) Type() Type {
	if d == nil || d.Proto == nil {
		return ""
	}
	return d.Proto.Type()
}

// WithName returns a copy of d carrying a new display name.
func (d *Descriptor) WithName(name string) *Descriptor {
	c := *d
	c.Name = name
	return &c
}

// TLSEnabled reports whether the link negotiates TLS (including REALITY).
func (d *Descriptor) TLSEnabled() bool {
	switch p := d.Proto.(type) {
	case VLESS:
		return p.Security == "tls" || p.Security == "reality"
	case VMess:
		return p.TLS
	case Trojan:
		return true
	}
	return false
}

// Reality reports whether the link is a VLESS REALITY link.
func (d *Descriptor) Reality() bool {
	p, ok := d.Proto.(VLESS)
	return ok && p.Security == "reality"
}

// ALPNList splits the comma joined ALPN field.
func (d *Descriptor) ALPNList() []string {
	return splitComma(d.ALPN)
}

// ServerName returns the SNI, falling back to the host header and then the host.
func (d *Descriptor) ServerName() string {
	return firstNonEmpty(d.SNI, d.HostHeader, d.Host)
}
