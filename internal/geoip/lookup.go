package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Database annotates public addresses with a country ISO code. A nil
// *Database is valid and answers "" for every lookup, so callers without a
// configured database don't need to branch.
type Database struct {
	reader *geoip2.Reader
}

func Open(path string) (*Database, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Database{reader: r}, nil
}

func (d *Database) Country(ipStr string) string {
	if d == nil || d.reader == nil {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	record, err := d.reader.Country(ip)
	if err != nil || record.Country.IsoCode == "" {
		return ""
	}

	return record.Country.IsoCode
}

func (d *Database) Close() {
	if d == nil || d.reader == nil {
		return
	}
	d.reader.Close()
}
