package database

import "time"

// ArchiveRecord is the ledger entry of one delivered ticket transcript. The
// transcript itself lives in the archive channel.
type ArchiveRecord struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChannelID        string    `db:"channel_id"`
	ChannelName      string    `db:"channel_name"`
	TicketType       string    `db:"ticket_type"`
	OpenerID         string    `db:"opener_id"`
	ClosedByID       string    `db:"closed_by_id"`
	MessageCount     int       `db:"message_count"`
	Truncated        bool      `db:"truncated"`
	FileName         string    `db:"file_name"`
	ArchiveMessageID string    `db:"archive_message_id"`
	ArchivedAt       time.Time `db:"archived_at"`
}
