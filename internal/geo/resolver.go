package geo

import (
	"net"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

// Resolver maps proxy hosts to ISO country codes through a local MaxMind
// database. A nil Resolver is valid and resolves everything to "".
type Resolver struct {
	db *geoip2.Reader
}

// Open loads the MaxMind database at path. An empty path disables country
// resolution and returns a nil Resolver without error.
func Open(path string) (*Resolver, error) {
	if path == "" {
		return nil, nil
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	log.Info("geoip database loaded", "path", path)
	return &Resolver{db: db}, nil
}

func (r *Resolver) Country(host string) string {
	if r == nil || r.db == nil {
		return ""
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}

	record, err := r.db.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
