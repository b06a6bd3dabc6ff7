package domain

import "time"

// SlotJob задача на обработку одного слота доставки.
// Планировщик публикует её в очередь, нотификатор исполняет.
type SlotJob struct {
	ID          string    `json:"id"`
	Slot        Slot      `json:"slot"`
	DateKey     string    `json:"date_key"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Attempt     int       `json:"attempt,omitempty"`
}
