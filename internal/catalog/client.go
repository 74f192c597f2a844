package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/grouppromo/adbot/internal/model"
	"go.uber.org/zap"
)

// Endpoint сущность удалённого каталога
type Endpoint string

const (
	EndpointSubject Endpoint = "subject"
	EndpointCity    Endpoint = "city"
	EndpointGroup   Endpoint = "group"
	EndpointPost    Endpoint = "post"
	EndpointUser    Endpoint = "user"
)

// Разрешённые методы по ролям. Админу разрешено всё.
var rolePermissions = map[model.Role]map[Endpoint][]string{
	model.RoleClient: {
		EndpointUser: {http.MethodPost},
	},
	model.RoleVendor: {
		EndpointSubject: {http.MethodGet},
		EndpointCity:    {http.MethodGet},
		EndpointGroup:   {http.MethodGet, http.MethodPost, http.MethodPut},
		EndpointUser:    {http.MethodPost},
		EndpointPost:    {http.MethodGet, http.MethodPost},
	},
}

// Client клиент удалённого CRUD API каталога
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL + "/api",
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Permit проверяет разрешение роли на операцию до похода в API
func Permit(as model.Role, endpoint Endpoint, method string) *APIError {
	if as == model.RoleAdmin {
		return nil
	}

	allowed := rolePermissions[as][endpoint]
	for _, m := range allowed {
		if m == method {
			return nil
		}
	}

	return &APIError{Kind: KindForbidden, Code: 403, Message: "У вас недостаточно прав"}
}

// envelope конверт ответа API: {result: ..., error: {code, message, errors}}
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	} `json:"error"`
}

// listResult конверт списочных ответов
type listResult struct {
	ResponseList json.RawMessage `json:"responseList"`
}

func (c *Client) do(ctx context.Context, as model.Role, endpoint Endpoint, method, path string, body any, query url.Values) (json.RawMessage, error) {
	if apiErr := Permit(as, endpoint, method); apiErr != nil {
		return nil, apiErr
	}

	reqURL := fmt.Sprintf("%s/%s%s", c.baseURL, endpoint, path)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Catalog request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("url", reqURL),
			zap.Error(err))
		return nil, &APIError{Kind: KindServer, Code: 500, Message: "Internal Server Error"}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.logger.Error("Catalog response decode failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &APIError{Kind: KindServer, Code: 500, Message: "Internal Server Error"}
	}

	if env.Error != nil {
		apiErr := errorFromEnvelope(env.Error.Code, env.Error.Message, env.Error.Errors)
		c.logger.Warn("Catalog returned error",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("url", reqURL),
			zap.Int("code", apiErr.Code),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	return env.Result, nil
}

func (c *Client) list(ctx context.Context, as model.Role, endpoint Endpoint, restrict map[string]any, out any) error {
	query := url.Values{}
	if restrict == nil {
		restrict = map[string]any{}
	}
	data, err := json.Marshal(restrict)
	if err != nil {
		return fmt.Errorf("encode restrict: %w", err)
	}
	query.Set("restrict", string(data))

	result, err := c.do(ctx, as, endpoint, http.MethodGet, "", nil, query)
	if err != nil {
		return err
	}

	var lr listResult
	if err := json.Unmarshal(result, &lr); err != nil {
		return fmt.Errorf("decode list result: %w", err)
	}
	if lr.ResponseList == nil {
		return nil
	}
	if err := json.Unmarshal(lr.ResponseList, out); err != nil {
		return fmt.Errorf("decode response list: %w", err)
	}
	return nil
}

// CreateUser регистрирует пользователя в каталоге
func (c *Client) CreateUser(ctx context.Context, as model.Role, telegramID int64) error {
	_, err := c.do(ctx, as, EndpointUser, http.MethodPost, "", UserView{TelegramID: telegramID}, nil)
	return err
}

// ListSubjects получает все направления
func (c *Client) ListSubjects(ctx context.Context, as model.Role) ([]Subject, error) {
	var subjects []Subject
	if err := c.list(ctx, as, EndpointSubject, nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// CreateSubject добавляет направление
func (c *Client) CreateSubject(ctx context.Context, as model.Role, name string) error {
	_, err := c.do(ctx, as, EndpointSubject, http.MethodPost, "", Subject{Name: name}, nil)
	return err
}

// DeleteSubject удаляет направление
func (c *Client) DeleteSubject(ctx context.Context, as model.Role, id int64) error {
	_, err := c.do(ctx, as, EndpointSubject, http.MethodDelete, fmt.Sprintf("/%d", id), nil, nil)
	return err
}

// ListCities получает города направления
func (c *Client) ListCities(ctx context.Context, as model.Role, subjectID int64) ([]City, error) {
	var cities []City
	if err := c.list(ctx, as, EndpointCity, map[string]any{"subjectId": subjectID}, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// CreateCity добавляет город в направление
func (c *Client) CreateCity(ctx context.Context, as model.Role, subjectID int64, name string) error {
	_, err := c.do(ctx, as, EndpointCity, http.MethodPost, "", City{City: name, SubjectID: subjectID}, nil)
	return err
}

// DeleteCity удаляет город
func (c *Client) DeleteCity(ctx context.Context, as model.Role, id int64) error {
	_, err := c.do(ctx, as, EndpointCity, http.MethodDelete, fmt.Sprintf("/%d", id), nil, nil)
	return err
}

// ListGroups получает группы по фильтру
func (c *Client) ListGroups(ctx context.Context, as model.Role, restrict map[string]any) ([]Group, error) {
	var groups []Group
	if err := c.list(ctx, as, EndpointGroup, restrict, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListGroupsByOwner получает группы владельца
func (c *Client) ListGroupsByOwner(ctx context.Context, as model.Role, userTelegramID int64) ([]Group, error) {
	return c.ListGroups(ctx, as, map[string]any{"userTelegramId": userTelegramID})
}

// CreateGroup регистрирует группу в каталоге
func (c *Client) CreateGroup(ctx context.Context, as model.Role, group Group) error {
	_, err := c.do(ctx, as, EndpointGroup, http.MethodPost, "", group, nil)
	return err
}

// UpdateGroup обновляет карточку группы
func (c *Client) UpdateGroup(ctx context.Context, as model.Role, group Group) error {
	_, err := c.do(ctx, as, EndpointGroup, http.MethodPut, "", group, nil)
	return err
}

// CreatePost создаёт размещение
func (c *Client) CreatePost(ctx context.Context, as model.Role, post Post) error {
	_, err := c.do(ctx, as, EndpointPost, http.MethodPost, "", post, nil)
	return err
}

// ListPosts получает размещения по фильтру
func (c *Client) ListPosts(ctx context.Context, as model.Role, restrict map[string]any) ([]Post, error) {
	var posts []Post
	if err := c.list(ctx, as, EndpointPost, restrict, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CountPostsOnDate считает опубликованные размещения группы за один день.
// У API нет фильтра по диапазону дат, только по конкретному дню.
func (c *Client) CountPostsOnDate(ctx context.Context, as model.Role, groupID int64, date string) (int, error) {
	posts, err := c.ListPosts(ctx, as, map[string]any{
		"groupId":     groupID,
		"publishDate": date,
		"status":      PostPublished,
	})
	if err != nil {
		return 0, err
	}
	return len(posts), nil
}

// FindPostByMessageID ищет размещение по id сообщения (вставленная ссылка на пост)
func (c *Client) FindPostByMessageID(ctx context.Context, as model.Role, messageID int64) (*Post, error) {
	posts, err := c.ListPosts(ctx, as, map[string]any{"messageId": messageID})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, &APIError{Kind: KindNotFound, Code: 404, Message: "Пост не найден"}
	}
	return &posts[0], nil
}
