package amocrm

// Provider status codes shared by every amoCRM account: the two system
// statuses every pipeline ends in.
const (
	StatusWon  int64 = 142
	StatusLost int64 = 143
)

// Lead is a deal as the v4 API lists it. Only the fields the report needs
// are decoded; loss_reason_id is 0 when the provider sends null.
type Lead struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	ResponsibleUserID int64  `json:"responsible_user_id"`
	StatusID          int64  `json:"status_id"`
	PipelineID        int64  `json:"pipeline_id"`
	LossReasonID      int64  `json:"loss_reason_id"`
	ClosedAt          int64  `json:"closed_at"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

// User is an account member who can be responsible for leads.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LossReason is a configured reason from the account's loss reason directory.
type LossReason struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Task is an item from /api/v4/tasks. EntityID points at the lead when
// EntityType is "leads".
type Task struct {
	ID           int64  `json:"id"`
	EntityID     int64  `json:"entity_id"`
	EntityType   string `json:"entity_type"`
	IsCompleted  bool   `json:"is_completed"`
	CompleteTill int64  `json:"complete_till"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Note is an entry from a lead's notes listing.
type Note struct {
	ID        int64  `json:"id"`
	NoteType  string `json:"note_type"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Event is a timeline entry from /api/v4/events.
type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	EntityID   int64  `json:"entity_id"`
	EntityType string `json:"entity_type"`
	CreatedAt  int64  `json:"created_at"`
}

// tokenResponse is what the provider's /oauth2/access_token endpoint returns.
type tokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
