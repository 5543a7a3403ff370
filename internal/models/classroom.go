package models

// RoomType is the kind of teaching space a classroom provides.
type RoomType string

const (
	RoomTypeLecture RoomType = "LECTURE"
	RoomTypeLab     RoomType = "LAB"
)

// Classroom is a bookable room.
type Classroom struct {
	RoomNo   string   `db:"room_no" json:"roomNo"`
	Type     RoomType `db:"room_type" json:"roomType"`
	Capacity int      `db:"capacity" json:"capacity"`
}
