package entity

// ChatMessage is relayed to every member of the sender's room.
type ChatMessage struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}
