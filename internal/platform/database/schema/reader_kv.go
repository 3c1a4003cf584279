package schema

// ReaderKVTable represents the 'reader.kv' table
type ReaderKVTable struct {
	Table     string
	Key       string
	Value     string
	UpdatedAt string
}

// ReaderKV is the schema definition for reader.kv
var ReaderKV = ReaderKVTable{
	Table:     "reader.kv",
	Key:       "key",
	Value:     "value",
	UpdatedAt: "updatedat",
}
