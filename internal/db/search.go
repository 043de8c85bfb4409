package db

// KeyQuery selects document keys by an exact TAG value.
// Prefix is the key prefix of the index, used by drivers that scan keys.
type KeyQuery struct {
	Index    string
	Prefix   string
	TagField string
	TagValue string
	Offset   int
	Limit    int
}

// KeyPage is one page of matching keys.
// Total is the number of matches across all pages when the driver knows it, otherwise -1.
type KeyPage struct {
	Total int
	Keys  []string
}
