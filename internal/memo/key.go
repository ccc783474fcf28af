package memo

// keyTimestampLen is how much of the raw timestamp participates in an
// identity key: date plus time to the second, dropping sub-second digits
// and timezone suffix.
const keyTimestampLen = 19

// IdentityKey derives the deduplication/tombstone key for a memo-like
// record: content joined with the truncated creation timestamp. Records
// whose timestamps differ only past the second collapse to one key.
func IdentityKey(content, createdAt string) string {
	if len(createdAt) > keyTimestampLen {
		createdAt = createdAt[:keyTimestampLen]
	}
	return content + "__" + createdAt
}
