package memo

// Priority levels accepted by the memos store.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Categories accepted by the memos store.
const (
	CategoryWork     = "WORK"
	CategoryPlanning = "PLANNING"
	CategoryHobby    = "HOBBY"
	CategoryUser     = "USER"
	CategoryGeneral  = "GENERAL"
)

// Memo mirrors a row of the remote memos resource. CreatedAt is kept as the
// raw timestamp string returned by the store so identity keys truncate the
// exact wire representation.
type Memo struct {
	ID            string  `json:"id,omitempty"`
	UserID        string  `json:"user_id"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	DueDate       *string `json:"due_date"`
	Priority      string  `json:"priority"`
	Category      string  `json:"category"`
	IsCompleted   bool    `json:"is_completed"`
	CreatedAt     string  `json:"created_at,omitempty"`
	Source        string  `json:"source,omitempty"`
	ChatMessageID string  `json:"chat_message_id,omitempty"`
}

// Key returns the memo's identity key.
func (m Memo) Key() string {
	return IdentityKey(m.Content, m.CreatedAt)
}

// Draft is a normalized memo shape parsed from an AI reply, before it is
// bound to a user and a timestamp.
type Draft struct {
	Content  string
	DueDate  *string
	Priority string
	Category string
}

// Candidate is a draft tied to the chat message it was extracted from.
type Candidate struct {
	Draft
	CreatedAt     string
	ChatMessageID string
}

// Key returns the candidate's identity key.
func (c Candidate) Key() string {
	return IdentityKey(c.Content, c.CreatedAt)
}

// NormalizePriority validates a priority value, falling back to MEDIUM.
func NormalizePriority(p string) string {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityMedium
	}
}

// NormalizeCategory maps the model's open category vocabulary onto the
// values the store accepts. TASK and MEMO are aliases the model tends to
// produce; anything unrecognized becomes GENERAL.
func NormalizeCategory(c string) string {
	switch c {
	case "TASK":
		return CategoryWork
	case "MEMO":
		return CategoryGeneral
	case CategoryWork, CategoryPlanning, CategoryHobby, CategoryUser, CategoryGeneral:
		return c
	default:
		return CategoryGeneral
	}
}
