package link

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind string

const (
	KindInvalidInput        Kind = "InvalidInput"
	KindLinkTooLong         Kind = "LinkTooLong"
	KindUnsupportedProtocol Kind = "UnsupportedProtocol"
	KindNotVlessLink        Kind = "NotVlessLink"
	KindMalformedLink       Kind = "MalformedLink"
	KindInvalidVmessPayload Kind = "InvalidVmessPayload"
	KindInvalidTrojanFormat Kind = "InvalidTrojanFormat"
	KindInvalidSsEncoding   Kind = "InvalidSsEncoding"
)

// Sentinels for errors.Is. A *ParseError matches the sentinel of its Kind.
var (
	ErrInvalidInput        = &ParseError{Kind: KindInvalidInput}
	ErrLinkTooLong         = &ParseError{Kind: KindLinkTooLong}
	ErrUnsupportedProtocol = &ParseError{Kind: KindUnsupportedProtocol}
	ErrNotVlessLink        = &ParseError{Kind: KindNotVlessLink}
	ErrMalformedLink       = &ParseError{Kind: KindMalformedLink}
	ErrInvalidVmessPayload = &ParseError{Kind: KindInvalidVmessPayload}
	ErrInvalidTrojanFormat = &ParseError{Kind: KindInvalidTrojanFormat}
	ErrInvalidSsEncoding   = &ParseError{Kind: KindInvalidSsEncoding}
)

// Reasons attached to InvalidTrojanFormat.
const (
	ReasonMissingParts = "missing userinfo or serverinfo"
	ReasonInvalidPort  = "invalid port"
)

type ParseError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := messages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

var messages = map[Kind]string{
	KindInvalidInput:        "link must be a non-empty string",
	KindLinkTooLong:         "link is too long",
	KindUnsupportedProtocol: "unsupported protocol, supported: vless, vmess, trojan, ss",
	KindNotVlessLink:        "not a vless link",
	KindMalformedLink:       "malformed link",
	KindInvalidVmessPayload: "invalid vmess base64 json",
	KindInvalidTrojanFormat: "invalid trojan link format",
	KindInvalidSsEncoding:   "invalid shadowsocks encoding",
}

func newError(kind Kind, reason string, err error) *ParseError {
	return &ParseError{Kind: kind, Reason: reason, Err: err}
}

// KindOf reports the parse failure kind of err, or "" when err is not a parse error.
func KindOf(err error) Kind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
