package models

import "time"

type Comment struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	EventID   string    `json:"eventId" bson:"eventId" db:"event_id"`
	UserID    string    `json:"uid" bson:"uid" db:"user_id"`
	UserName  string    `json:"userName" bson:"userName" db:"user_name"`
	Body      string    `json:"comment" bson:"comment" db:"body"`
	Replies   []Reply   `json:"replies" bson:"replies" db:"replies"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp" db:"created_at"`
}

type Reply struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"uid" bson:"uid"`
	UserName  string    `json:"userName" bson:"userName"`
	Body      string    `json:"comment" bson:"comment"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type CommentRequest struct {
	Body string `json:"comment" validate:"required,max=2000"`
}
