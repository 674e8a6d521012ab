// Package reddit — http.go реализует Client поверх Reddit OAuth API.
// Используется retryablehttp: платформа медленная и периодически отдаёт
// 5xx/429, повторы с backoff здесь — норма, а не исключение.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"

	"deltabot/internal/config"
)

const (
	authURL = "https://www.reddit.com/api/v1/access_token"
	apiURL  = "https://oauth.reddit.com"
)

// HTTPClient — реализация Client через Reddit OAuth (script app,
// grant_type=password). Потокобезопасен.
type HTTPClient struct {
	cfg  *config.Config
	http *retryablehttp.Client
	gate *EditGate

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	modsMu      sync.Mutex
	mods        map[string]bool
	modsFetched time.Time
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient создаёт клиента Reddit API.
// Все мутирующие вызовы проходят через общий EditGate.
func NewHTTPClient(cfg *config.Config, gate *EditGate) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 4
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 30 * time.Second
	rc.Logger = nil // логируем сами

	return &HTTPClient{
		cfg:  cfg,
		http: rc,
		gate: gate,
	}
}

// BotUsername возвращает имя учётной записи бота.
func (c *HTTPClient) BotUsername() string {
	return c.cfg.RedditUsername
}

// --- OAuth ---

// ensureToken получает/обновляет access token.
func (c *HTTPClient) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.RedditUsername)
	form.Set("password", c.cfg.RedditPassword)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.RedditClientID, c.cfg.RedditClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ошибка получения токена: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("токен не выдан: HTTP %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("ошибка разбора токена: %w", err)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	log.Debug("reddit token refreshed")
	return c.token, nil
}

// do выполняет авторизованный запрос и возвращает тело ответа.
func (c *HTTPClient) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, apiURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("reddit %s %s: HTTP %d", method, path, resp.StatusCode)
	}
	return data, nil
}

// mutate — то же, что do, но через edit-шлюз.
func (c *HTTPClient) mutate(ctx context.Context, path string, form url.Values) ([]byte, error) {
	c.gate.Acquire()
	return c.do(ctx, http.MethodPost, path, form)
}

// --- Разбор ответов ---

// thingData — сырой объект из листинга Reddit.
type thingData struct {
	Kind string `json:"kind"` // t1/t3/t4
	Data struct {
		Name            string          `json:"name"`
		ParentID        string          `json:"parent_id"`
		LinkID          string          `json:"link_id"`
		Author          string          `json:"author"`
		AuthorFlairText string          `json:"author_flair_text"`
		Body            string          `json:"body"`
		Selftext        string          `json:"selftext"`
		Subject         string          `json:"subject"`
		Title           string          `json:"title"`
		Permalink       string          `json:"permalink"`
		CreatedUTC      float64         `json:"created_utc"`
		Edited          json.RawMessage `json:"edited"` // false или epoch
	} `json:"data"`
}

type listing struct {
	Data struct {
		Children []thingData `json:"children"`
	} `json:"data"`
}

// toThing переводит сырой объект в каноническую запись события.
func toThing(td thingData) *Thing {
	t := &Thing{
		ID:              td.Data.Name,
		ParentID:        td.Data.ParentID,
		LinkID:          td.Data.LinkID,
		Author:          td.Data.Author,
		AuthorFlairText: td.Data.AuthorFlairText,
		Body:            td.Data.Body,
		Subject:         td.Data.Subject,
		Title:           td.Data.Title,
		Permalink:       td.Data.Permalink,
		CreatedUTC:      int64(td.Data.CreatedUTC),
		// "edited" у Reddit — либо false, либо epoch правки
		IsEdited: len(td.Data.Edited) > 0 && string(td.Data.Edited) != "false",
	}
	switch td.Kind {
	case "t1":
		t.Kind = KindComment
	case "t3":
		t.Kind = KindPost
		t.Body = td.Data.Selftext
	case "t4":
		t.Kind = KindMessage
	}
	return t
}

func parseListing(data []byte) ([]*Thing, error) {
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("ошибка разбора листинга: %w", err)
	}
	things := make([]*Thing, 0, len(l.Data.Children))
	for _, td := range l.Data.Children {
		things = append(things, toThing(td))
	}
	return things, nil
}

// --- Чтение ---

// ThingByID читает объект по fullname через /api/info.
func (c *HTTPClient) ThingByID(ctx context.Context, id string) (*Thing, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/info?id="+url.QueryEscape(id), nil)
	if err != nil {
		return nil, err
	}
	things, err := parseListing(data)
	if err != nil {
		return nil, err
	}
	if len(things) == 0 {
		return nil, fmt.Errorf("объект %s не найден", id)
	}
	return things[0], nil
}

// ThingByURL читает объект по постоянной ссылке.
func (c *HTTPClient) ThingByURL(ctx context.Context, rawURL string) (*Thing, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/info?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return nil, err
	}
	things, err := parseListing(data)
	if err != nil {
		return nil, err
	}
	if len(things) == 0 {
		return nil, fmt.Errorf("объект по ссылке не найден")
	}
	return things[0], nil
}

// PopulateParentAndChildren заполняет Parent, Post и Children объекта.
func (c *HTTPClient) PopulateParentAndChildren(ctx context.Context, t *Thing) error {
	if t.ParentID != "" {
		parent, err := c.ThingByID(ctx, t.ParentID)
		if err != nil {
			return fmt.Errorf("родитель %s: %w", t.ParentID, err)
		}
		t.Parent = parent
	}

	if t.Parent != nil && t.Parent.IsPost() {
		t.Post = t.Parent
	} else if t.LinkID != "" {
		post, err := c.ThingByID(ctx, t.LinkID)
		if err != nil {
			return fmt.Errorf("пост %s: %w", t.LinkID, err)
		}
		t.Post = post
	}

	return c.PopulateChildren(ctx, t)
}

// PopulateChildren заполняет непосредственных потомков объекта.
// Читается дерево по permalink: фокусный объект + его ответы.
func (c *HTTPClient) PopulateChildren(ctx context.Context, t *Thing) error {
	if t.Permalink == "" {
		return nil
	}
	data, err := c.do(ctx, http.MethodGet, t.Permalink+".json?depth=1", nil)
	if err != nil {
		return err
	}

	// Ответ — массив из двух листингов: [пост, комментарии]
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("ошибка разбора дерева: %w", err)
	}
	if len(parts) < 2 {
		t.Children = nil
		return nil
	}

	things, err := parseListing(parts[1])
	if err != nil {
		return err
	}

	if t.IsPost() {
		// У поста потомки — комментарии верхнего уровня
		t.Children = things
		return nil
	}

	// У комментария фокусный элемент идёт первым, потомков берём из его replies
	var l listing
	if err := json.Unmarshal(parts[1], &l); err != nil || len(l.Data.Children) == 0 {
		t.Children = nil
		return nil
	}
	var focal struct {
		Data struct {
			Replies json.RawMessage `json:"replies"`
		} `json:"data"`
	}
	if err := json.Unmarshal(mustMarshal(l.Data.Children[0]), &focal); err != nil {
		return err
	}
	// replies — либо "" (нет ответов), либо вложенный листинг
	if len(focal.Data.Replies) == 0 || string(focal.Data.Replies) == `""` {
		t.Children = nil
		return nil
	}
	children, err := parseListing(focal.Data.Replies)
	if err != nil {
		return err
	}
	t.Children = children
	return nil
}

func mustMarshal(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}

// --- Мутации (через edit-шлюз) ---

// Reply отвечает на комментарий/пост и возвращает созданный комментарий.
func (c *HTTPClient) Reply(ctx context.Context, parentID, body string) (*Thing, error) {
	form := url.Values{}
	form.Set("thing_id", parentID)
	form.Set("text", body)
	form.Set("api_type", "json")

	data, err := c.mutate(ctx, "/api/comment", form)
	if err != nil {
		return nil, err
	}

	var resp struct {
		JSON struct {
			Data struct {
				Things []thingData `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа /api/comment: %w", err)
	}
	if len(resp.JSON.Data.Things) == 0 {
		return nil, fmt.Errorf("ответ не создан")
	}
	return toThing(resp.JSON.Data.Things[0]), nil
}

// EditComment заменяет текст комментария бота.
func (c *HTTPClient) EditComment(ctx context.Context, id, body string) error {
	form := url.Values{}
	form.Set("thing_id", id)
	form.Set("text", body)
	_, err := c.mutate(ctx, "/api/editusertext", form)
	return err
}

// DeleteComment удаляет комментарий бота.
func (c *HTTPClient) DeleteComment(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	_, err := c.mutate(ctx, "/api/del", form)
	return err
}

// DistinguishSticky помечает комментарий бота как закреплённый.
func (c *HTTPClient) DistinguishSticky(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	form.Set("how", "yes")
	form.Set("sticky", "true")
	_, err := c.mutate(ctx, "/api/distinguish", form)
	return err
}

// SendMessage отправляет личное сообщение.
func (c *HTTPClient) SendMessage(ctx context.Context, to, subject, body string) error {
	form := url.Values{}
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", body)
	_, err := c.mutate(ctx, "/api/compose", form)
	return err
}

// ReplyToMessage отвечает на входящее личное сообщение.
func (c *HTTPClient) ReplyToMessage(ctx context.Context, id, body string) error {
	form := url.Values{}
	form.Set("thing_id", id)
	form.Set("text", body)
	_, err := c.mutate(ctx, "/api/comment", form)
	return err
}

// MarkRead помечает сообщение прочитанным. Не edit-класс, шлюз не нужен.
func (c *HTTPClient) MarkRead(ctx context.Context, id string) error {
	form := url.Values{}
	form.Set("id", id)
	_, err := c.do(ctx, http.MethodPost, "/api/read_message", form)
	return err
}

// SetUserFlair выставляет флейр пользователя в сабреддите.
func (c *HTTPClient) SetUserFlair(ctx context.Context, username, text string) error {
	form := url.Values{}
	form.Set("name", username)
	form.Set("text", text)
	_, err := c.mutate(ctx, "/r/"+c.cfg.Subreddit+"/api/flair", form)
	return err
}

// IsModerator проверяет, модератор ли пользователь.
// Список модераторов кешируется на 10 минут.
func (c *HTTPClient) IsModerator(ctx context.Context, username string) (bool, error) {
	c.modsMu.Lock()
	defer c.modsMu.Unlock()

	if c.mods == nil || time.Since(c.modsFetched) > 10*time.Minute {
		data, err := c.do(ctx, http.MethodGet, "/r/"+c.cfg.Subreddit+"/about/moderators", nil)
		if err != nil {
			return false, err
		}
		var resp struct {
			Data struct {
				Children []struct {
					Name string `json:"name"`
				} `json:"children"`
			} `json:"data"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return false, fmt.Errorf("ошибка разбора списка модераторов: %w", err)
		}
		c.mods = make(map[string]bool, len(resp.Data.Children))
		for _, m := range resp.Data.Children {
			c.mods[strings.ToLower(m.Name)] = true
		}
		c.modsFetched = time.Now()
	}

	return c.mods[strings.ToLower(username)], nil
}

// --- Листинги для продьюсеров ---

// NewComments возвращает свежие комментарии сабреддита.
func (c *HTTPClient) NewComments(ctx context.Context, before string) ([]*Thing, error) {
	path := "/r/" + c.cfg.Subreddit + "/comments?limit=100"
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return parseListing(data)
}

// EditedComments возвращает недавно отредактированные комментарии
// (модераторский листинг).
func (c *HTTPClient) EditedComments(ctx context.Context) ([]*Thing, error) {
	data, err := c.do(ctx, http.MethodGet, "/r/"+c.cfg.Subreddit+"/about/edited?only=comments&limit=100", nil)
	if err != nil {
		return nil, err
	}
	return parseListing(data)
}

// UnreadMessages возвращает непрочитанные личные сообщения.
func (c *HTTPClient) UnreadMessages(ctx context.Context) ([]*Thing, error) {
	data, err := c.do(ctx, http.MethodGet, "/message/unread?limit=100", nil)
	if err != nil {
		return nil, err
	}
	return parseListing(data)
}
