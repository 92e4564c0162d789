package entity

// Player is a room member bound to one live connection.
type Player struct {
	ConnectionID string `json:"id"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
}
