package storage

import "errors"

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// Well-known keys. These match the names the web client used in
// localStorage so a future export/import stays recognizable.
const (
	KeyDeletedMemoKeys = "deleted_memo_keys"
	KeyLastSyncStamp   = "memo_sync_last_ts"
	KeyChatTranscript  = "chat_transcript"
)
