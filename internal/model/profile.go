package model

// ProfileType は利用者の区分を表します
type ProfileType string

const (
	ProfileTypeUser  ProfileType = "user"
	ProfileTypeAdmin ProfileType = "admin"
)

func (t ProfileType) Valid() bool {
	return t == ProfileTypeUser || t == ProfileTypeAdmin
}

// Profile は利用者情報です
// 物理削除はせず、IsDeletedで論理削除します
type Profile struct {
	ID        string      `db:"id" json:"id"`
	Email     string      `db:"email" json:"email"`
	StudentID *string     `db:"student_id" json:"student_id,omitempty"`
	Type      ProfileType `db:"type" json:"type"`
	IsDeleted bool        `db:"is_deleted" json:"is_deleted"`
}
