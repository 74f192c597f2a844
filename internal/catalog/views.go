package catalog

// Типы публикаций
const (
	PublicationText      = "TEXT"
	PublicationPhoto     = "PHOTO"
	PublicationVideo     = "VIDEO"
	PublicationAnimation = "ANIMATION"
)

// Статусы размещений
const (
	PostAwaits    = "AWAITS"
	PostPublished = "PUBLISHED"
	PostError     = "ERROR"
)

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type City struct {
	ID        int64  `json:"id"`
	City      string `json:"city"`
	SubjectID int64  `json:"subjectId,omitempty"`
}

type UserView struct {
	ID         int64 `json:"id,omitempty"`
	TelegramID int64 `json:"telegramId"`
}

// Price пара цен за размещение: без закрепа и с закрепом
type Price struct {
	WithoutPin int `json:"withoutPin"`
	WithPin    int `json:"withPin"`
}

// Group полная карточка группы в удалённом каталоге
type Group struct {
	ID                    int64  `json:"id,omitempty"`
	Name                  string `json:"name"`
	GroupTelegramID       int64  `json:"groupTelegramId"`
	UserTelegramID        int64  `json:"userTelegramId"`
	CityID                int64  `json:"cityId"`
	WorkingHoursStart     string `json:"workingHoursStart"`
	WorkingHoursEnd       string `json:"workingHoursEnd"`
	PostIntervalInMinutes int    `json:"postIntervalInMinutes"`
	Link                  string `json:"link,omitempty"`
	PriceForOneDay        Price  `json:"priceForOneDay"`
	PriceForOneWeek       Price  `json:"priceForOneWeek"`
	PriceForTwoWeeks      Price  `json:"priceForTwoWeeks"`
	PriceForOneMonth      Price  `json:"priceForOneMonth"`
}

type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Publication содержимое объявления
type Publication struct {
	Type   string  `json:"type"`
	FileID string  `json:"fileId,omitempty"`
	Text   string  `json:"text,omitempty"`
	Button *Button `json:"button,omitempty"`
}

// Post запланированное размещение объявления в группе
type Post struct {
	ID          int64       `json:"id,omitempty"`
	Publication Publication `json:"publication"`
	GroupID     int64       `json:"groupId"`
	PublishDate string      `json:"publishDate"` // YYYY-MM-DD
	PublishTime string      `json:"publishTime"` // HH:MM:SS
	WithPin     bool        `json:"withPin"`
	Status      string      `json:"status,omitempty"`
	MessageID   int64       `json:"messageId,omitempty"` // id сообщения после публикации
}
