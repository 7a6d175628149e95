package export

// Protobuf field numbers
const (
	FieldMetaDemoName      = 1
	FieldMetaSchemaVersion = 2
	FieldMetaTimestampNano = 3
	FieldMetaFrames        = 4
	FieldMetaTruncated     = 5
	FieldMetaTool          = 6
	FieldMetaHostname      = 7
)

// Meta describes where an export came from
type Meta struct {
	DemoName      string
	SchemaVersion uint32
	TimestampNano uint64
	Frames        uint64
	Truncated     bool
	Tool          string // version of the tool that wrote the export
	Hostname      string
}

func (m *Meta) Marshal() []byte {
	var b []byte
	stringFields := []struct {
		tag int
		val string
	}{
		{FieldMetaDemoName, m.DemoName},
		{FieldMetaTool, m.Tool},
		{FieldMetaHostname, m.Hostname},
	}
	for _, sf := range stringFields {
		if len(sf.val) > 0 {
			b = appendString(b, sf.tag, sf.val)
		}
	}
	if m.SchemaVersion > 0 {
		b = appendUint(b, FieldMetaSchemaVersion, uint64(m.SchemaVersion))
	}
	if m.TimestampNano > 0 {
		b = appendFixed64(b, FieldMetaTimestampNano, m.TimestampNano)
	}
	if m.Frames > 0 {
		b = appendUint(b, FieldMetaFrames, m.Frames)
	}
	if m.Truncated {
		b = appendBool(b, FieldMetaTruncated, true)
	}
	return b
}

func (m *Meta) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldMetaDemoName:
			m.DemoName, err = getString(d, tag, wireType)
		case FieldMetaSchemaVersion:
			m.SchemaVersion, err = getUInt32(d, tag, wireType)
		case FieldMetaTimestampNano:
			m.TimestampNano, err = getFixed64(d, tag, wireType)
		case FieldMetaFrames:
			m.Frames, err = getUInt64(d, tag, wireType)
		case FieldMetaTruncated:
			m.Truncated, err = getBool(d, tag, wireType)
		case FieldMetaTool:
			m.Tool, err = getString(d, tag, wireType)
		case FieldMetaHostname:
			m.Hostname, err = getString(d, tag, wireType)
		default:
			_, err = d.Skip(tag, wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
