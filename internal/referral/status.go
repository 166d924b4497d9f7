package referral

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRewarded  Status = "rewarded" // terminal
)

// Status cuma jalan maju, tidak pernah mundur.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true},
	StatusCompleted: {StatusRewarded: true},
	StatusRewarded:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
