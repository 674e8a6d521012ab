// Package reddit — привязка к внешней платформе.
// things.go описывает каноническую запись события: пост, комментарий
// или личное сообщение в едином виде.
package reddit

import "strings"

// Kind — вид объекта Reddit.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindMessage Kind = "message"
)

// Thing — каноническое представление поста/комментария/личного сообщения.
// Parent, Post и Children заполняются лениво (PopulateParentAndChildren)
// и не сериализуются в очередь.
type Thing struct {
	ID              string `json:"id"`                // fullname, напр. "t1_abc123"
	ParentID        string `json:"parent_id"`         // fullname родителя
	LinkID          string `json:"link_id,omitempty"` // fullname поста (у комментариев)
	Kind            Kind   `json:"kind"`
	Author          string `json:"author"`
	AuthorFlairText string `json:"author_flair_text"`
	Body            string `json:"body"`
	Subject         string `json:"subject,omitempty"` // только у личных сообщений
	Title           string `json:"title,omitempty"`   // только у постов
	Permalink       string `json:"permalink"`
	CreatedUTC      int64  `json:"created_utc"`
	IsEdited        bool   `json:"is_edited"`
	// NeedsRefresh выставляется при повторной доставке из ninja-очереди:
	// объект надо перечитать с платформы.
	NeedsRefresh bool `json:"needs_refresh"`

	Parent   *Thing   `json:"-"`
	Post     *Thing   `json:"-"`
	Children []*Thing `json:"-"`
}

// IsPost сообщает, является ли объект постом.
func (t *Thing) IsPost() bool { return t.Kind == KindPost }

// IsComment сообщает, является ли объект комментарием.
func (t *Thing) IsComment() bool { return t.Kind == KindComment }

// IsDeleted сообщает, удалён ли автор объекта.
func (t *Thing) IsDeleted() bool {
	return t.Author == "" || t.Author == "[deleted]"
}

// PostID возвращает fullname поста, к которому относится объект.
// У поста это его собственный ID.
func (t *Thing) PostID() string {
	if t.IsPost() {
		return t.ID
	}
	if t.Post != nil {
		return t.Post.ID
	}
	return ""
}

// ShortID возвращает id без префикса вида ("t1_abc" → "abc").
func ShortID(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i >= 0 {
		return fullname[i+1:]
	}
	return fullname
}

// FullnamePrefix возвращает префикс fullname для вида объекта.
func FullnamePrefix(k Kind) string {
	switch k {
	case KindComment:
		return "t1_"
	case KindPost:
		return "t3_"
	case KindMessage:
		return "t4_"
	}
	return ""
}
