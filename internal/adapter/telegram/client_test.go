package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/voteban/internal/domain"
)

const testToken = "123456:test-token"

// fakeBotAPI answers Bot API methods with canned JSON bodies keyed by method name.
func fakeBotAPI(t *testing.T, responses map[string]string, onRequest func(method string, r *http.Request)) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		if onRequest != nil {
			onRequest(method, r)
		}
		body, ok := responses[method]
		if !ok {
			body = `{"ok":false,"error_code":404,"description":"Not Found: method not faked"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(testToken, bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestClient_SendMessage(t *testing.T) {
	var text string
	c := fakeBotAPI(t, map[string]string{
		"sendMessage": `{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`,
	}, func(_ string, r *http.Request) { text = r.FormValue("text") })

	id, err := c.SendMessage(context.Background(), -100, "hello")

	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Equal(t, "hello", text)
}

func TestClient_SendPoll(t *testing.T) {
	var question string
	c := fakeBotAPI(t, map[string]string{
		"sendPoll": `{"ok":true,"result":{"message_id":12,"date":0,"chat":{"id":-100,"type":"supergroup"},` +
			`"poll":{"id":"poll-9","question":"q","options":[],"total_voter_count":0,"is_closed":false,"is_anonymous":false,"type":"regular","allows_multiple_answers":false}}}`,
	}, func(_ string, r *http.Request) { question = r.FormValue("question") })

	sent, err := c.SendPoll(context.Background(), -100, "Забанить @spammer? ⚖️", []string{"Забанить", "Не банить"})

	require.NoError(t, err)
	assert.Equal(t, domain.SentPoll{PollID: "poll-9", MessageID: 12}, sent)
	assert.Equal(t, "Забанить @spammer? ⚖️", question)
}

func TestClient_GetMemberStatus(t *testing.T) {
	c := fakeBotAPI(t, map[string]string{
		"getChatMember": `{"ok":true,"result":{"status":"administrator","user":{"id":5,"is_bot":false,"first_name":"A"}}}`,
	}, nil)

	status, err := c.GetMemberStatus(context.Background(), -100, 5)

	require.NoError(t, err)
	assert.Equal(t, domain.MemberAdministrator, status)
	assert.True(t, status.IsAdmin())
}

func TestClient_GoneTargetsMapToAlreadyGone(t *testing.T) {
	c := fakeBotAPI(t, map[string]string{
		"deleteMessage":  `{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`,
		"banChatMember":  `{"ok":false,"error_code":400,"description":"Bad Request: PARTICIPANT_ID_INVALID"}`,
		"forwardMessage": `{"ok":false,"error_code":400,"description":"Bad Request: message to forward not found"}`,
	}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteMessage(ctx, -100, 1), domain.ErrAlreadyGone)
	assert.ErrorIs(t, c.BanMember(ctx, -100, 5), domain.ErrAlreadyGone)
	assert.ErrorIs(t, c.ForwardMessage(ctx, -200, -100, 1), domain.ErrAlreadyGone)
}

func TestClient_OtherErrorsAreNotGone(t *testing.T) {
	c := fakeBotAPI(t, map[string]string{
		"banChatMember": `{"ok":false,"error_code":400,"description":"Bad Request: not enough rights to restrict/unrestrict chat member"}`,
		"leaveChat":     `{"ok":false,"error_code":403,"description":"Forbidden: bot is not a member of the supergroup chat"}`,
	}, nil)
	ctx := context.Background()

	err := c.BanMember(ctx, -100, 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAlreadyGone)

	err = c.LeaveChat(ctx, -300)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAlreadyGone)
}

func TestClient_SetWebhook(t *testing.T) {
	var url, secret string
	c := fakeBotAPI(t, map[string]string{
		"setWebhook": `{"ok":true,"result":true}`,
	}, func(_ string, r *http.Request) {
		url = r.FormValue("url")
		secret = r.FormValue("secret_token")
	})

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example/", "s3cret"))
	assert.Equal(t, "https://bot.example/", url)
	assert.Equal(t, "s3cret", secret)
}
