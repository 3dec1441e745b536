package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"vortexconv/internal/logger"
)

var ErrNotLoaded = errors.New("geoip database not loaded")

// DB wraps the MaxMind ASN and Country readers. The Country database is
// optional; without it Country stays "XX".
type DB struct {
	asn     *geoip2.Reader
	country *geoip2.Reader
}

// Open loads the MMDB files. A missing ASN database is an error; a missing
// Country database only drops country data.
func Open(asnPath, countryPath string) (*DB, error) {
	db := &DB{}
	if asnPath == "" {
		return nil, fmt.Errorf("%w: no ASN database path", ErrNotLoaded)
	}

	var err error
	db.asn, err = geoip2.Open(asnPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ASN DB at %s: %w", asnPath, err)
	}

	if countryPath != "" {
		db.country, err = geoip2.Open(countryPath)
		if err != nil {
			logger.Log.Warnf("Failed to open Country DB at %s: %v. Country data will be missing.", countryPath, err)
		}
	}
	return db, nil
}

type Result struct {
	ISP     string `json:"isp"`
	Country string `json:"country"`
}

// Lookup annotates an IP. host names are not resolved here.
func (db *DB) Lookup(ipStr string) (*Result, error) {
	if db == nil || db.asn == nil {
		return nil, ErrNotLoaded
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("invalid ip: %s", ipStr)
	}

	res := &Result{ISP: "Unknown", Country: "XX"}
	if asn, err := db.asn.ASN(ip); err == nil && asn.AutonomousSystemOrganization != "" {
		res.ISP = asn.AutonomousSystemOrganization
	}
	if db.country != nil {
		if c, err := db.country.Country(ip); err == nil && c.Country.IsoCode != "" {
			res.Country = c.Country.IsoCode
		}
	}
	return res, nil
}

func (db *DB) Close() {
	if db == nil {
		return
	}
	if db.asn != nil {
		db.asn.Close()
	}
	if db.country != nil {
		db.country.Close()
	}
}
