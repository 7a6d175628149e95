/*
Package export implements the on-disk format for decoded demos.

An export is a gzipped protobuf with a small Meta header followed by every
decoded event. The serialisation code is written by hand on top of csproto,
there is no generated code. The schema is:

	message Export {
	  uint32 format_version = 1;
	  Meta meta = 2;
	  repeated Event events = 3;
	  uint32 compat_version = 4;
	}

	message Meta {
	  string demo_name = 1;
	  uint32 schema_version = 2;
	  fixed64 timestamp_nano = 3;
	  uint64 frames = 4;
	  bool truncated = 5;
	  string tool = 6;
	  string hostname = 7;
	}

	message Event {
	  string type = 1;
	  uint32 tag = 2;
	  uint64 offset = 3;
	  Value data = 4;
	}

	message Value {
	  oneof kind {
	    int64 int = 1;
	    double float = 2;
	    string str = 3;
	    bool bool = 4;
	    bytes raw = 5;
	    Record record = 6;
	    List list = 7;
	    bool null = 8;
	    bytes bits = 9; // one byte per bit
	  }
	}

	message Record { repeated Entry entries = 1; }
	message Entry { string key = 1; Value value = 2; }
	message List { repeated Value values = 1; }

Integers of any width are stored as int64 and floats as double, so a
decoded export has widened numeric types. Records keep their field order.
*/
package export
