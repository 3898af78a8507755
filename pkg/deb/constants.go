// pkg/deb/constants.go
package deb

const (
	// DataSegmentPrefix names the ar member that carries the package files
	DataSegmentPrefix = "data.tar"
)

// Compression suffixes understood for the data segment
const (
	SuffixGzip  = ".gz"
	SuffixXz    = ".xz"
	SuffixLzma  = ".lzma"
	SuffixZstd  = ".zst"
	SuffixBzip2 = ".bz2"
)
