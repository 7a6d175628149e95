package export

const (
	// CurrentFormatVersion is the export format we write
	CurrentFormatVersion uint32 = 1

	// WriteCompatFormatVersion is the oldest reader version that can read
	// exports written by this version.
	WriteCompatFormatVersion uint32 = 1
)
