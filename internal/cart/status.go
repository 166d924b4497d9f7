package cart

type Status string

const (
	StatusActive    Status = "active"
	StatusConverted Status = "converted"
	StatusAbandoned Status = "abandoned"
)

var validNext = map[Status]map[Status]bool{
	StatusActive:    {StatusConverted: true, StatusAbandoned: true},
	StatusConverted: {},
	StatusAbandoned: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
