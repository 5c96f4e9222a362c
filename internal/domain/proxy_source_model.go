package domain

// SourceFormat selects how a source body is turned into candidates.
type SourceFormat string

const (
	// SourceFormatText is one "host:port" candidate per line.
	SourceFormatText SourceFormat = "text"
	// SourceFormatHTMLTable extracts host/port from the first two cells
	// of every table row in an HTML page.
	SourceFormatHTMLTable SourceFormat = "html-table"
)

// ProxySource is one configured candidate source. Instances are built by
// the config package at startup and never mutated afterwards.
type ProxySource struct {
	URL    string
	Weight float64
	Type   ProxyType
	Format SourceFormat
}
