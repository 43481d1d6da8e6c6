package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ludo-sync/internal/transport"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

type fakeSubscriber struct {
	topics       []string
	unsubscribed []string
	fail         error
}

func (f *fakeSubscriber) Subscribe(topic string, h transport.Handler) (transport.Unsubscribe, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.topics = append(f.topics, topic)
	return func() { f.unsubscribed = append(f.unsubscribed, topic) }, nil
}

func newTestRouter(sub *fakeSubscriber) (*Router, *[]Inbound) {
	var got []Inbound
	r := NewRouter(sub, func(string, []byte) {}, func(in Inbound) { got = append(got, in) }, nil)
	return r, &got
}

func frame(t *testing.T, typ types.MessageType, message string, data any) []byte {
	t.Helper()
	m := map[string]any{"type": typ, "success": true, "message": message}
	if data != nil {
		m["data"] = data
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestRouter_DuplicateAckSubscribesOnce(t *testing.T) {
	sub := &fakeSubscriber{}
	r, got := newTestRouter(sub)

	body := frame(t, types.MsgCreated, "Game ABCD created", nil)
	r.Handle(transport.PersonalQueue, body)
	r.Handle(transport.PersonalQueue, body)

	require.Len(t, *got, 2)
	for _, in := range *got {
		assert.Equal(t, KindCreated, in.Kind)
		assert.Equal(t, "ABCD", in.GameID)
	}
	assert.Equal(t, []string{"/topic/game/ABCD"}, sub.topics)
	assert.Equal(t, "ABCD", r.GameID())
	assert.True(t, r.Subscribed())
}

func TestRouter_NewGameReplacesSubscription(t *testing.T) {
	sub := &fakeSubscriber{}
	r, _ := newTestRouter(sub)

	r.Handle(transport.PersonalQueue, frame(t, types.MsgCreated, "Game ABCD created", nil))
	r.Handle(transport.PersonalQueue, frame(t, types.MsgJoined, "Game WXYZ joined", nil))

	assert.Equal(t, []string{"/topic/game/ABCD", "/topic/game/WXYZ"}, sub.topics)
	assert.Equal(t, []string{"/topic/game/ABCD"}, sub.unsubscribed)

	r.Reset()
	assert.Equal(t, "", r.GameID())
	assert.False(t, r.Subscribed())
	assert.Equal(t, []string{"/topic/game/ABCD", "/topic/game/WXYZ"}, sub.unsubscribed)
}

func TestRouter_GameIDFromData(t *testing.T) {
	sub := &fakeSubscriber{}
	r, got := newTestRouter(sub)

	r.Handle(transport.PersonalQueue, frame(t, types.MsgJoined, "welcome", map[string]string{"gameId": "G-77"}))

	require.Len(t, *got, 1)
	assert.Equal(t, KindJoined, (*got)[0].Kind)
	assert.Equal(t, "G-77", (*got)[0].GameID)
	assert.Equal(t, []string{"/topic/game/G-77"}, sub.topics)
}

func TestRouter_FailedSubscribeIsRetriedOnNextAck(t *testing.T) {
	sub := &fakeSubscriber{fail: errors.New("down")}
	r, _ := newTestRouter(sub)

	body := frame(t, types.MsgCreated, "Game ABCD created", nil)
	r.Handle(transport.PersonalQueue, body)
	assert.False(t, r.Subscribed())

	sub.fail = nil
	r.Handle(transport.PersonalQueue, body)
	assert.True(t, r.Subscribed())
	assert.Equal(t, []string{"/topic/game/ABCD"}, sub.topics)
}

func TestRouter_Resubscribe(t *testing.T) {
	sub := &fakeSubscriber{}
	r, _ := newTestRouter(sub)

	r.Resubscribe()
	assert.Empty(t, sub.topics)

	r.Handle(transport.PersonalQueue, frame(t, types.MsgCreated, "Game ABCD created", nil))
	r.Resubscribe()
	assert.Equal(t, []string{"/topic/game/ABCD", "/topic/game/ABCD"}, sub.topics)
}

func TestRouter_Classification(t *testing.T) {
	snap := types.Snapshot{CurrentPlayerID: "p1", Dice: types.Dice{Die1: 2, Die2: 5}}

	cases := []struct {
		name    string
		body    []byte
		kind    Kind
		options []int
	}{
		{"your turn", frame(t, types.MsgYourTurn, "Your turn", nil), KindTurnNotice, nil},
		{"move options text", frame(t, types.MsgMoveOptions, "1. Move RED_1\n2. Move RED_2", nil), KindMoveOptions, []int{1, 2}},
		{"capture options alias", frame(t, types.MsgCaptureOptions, "(Options: 1-2)", nil), KindMoveOptions, []int{1, 2}},
		{"structured options", frame(t, types.MsgMoveOptions, "pick", map[string]any{
			"options": []map[string]any{{"number": 4, "description": "Move BLUE_1"}},
		}), KindMoveOptions, []int{4}},
		{"input required with options", frame(t, types.MsgInputRequired, "Choose a move:\n1. Move RED_1", nil), KindMoveOptions, []int{1}},
		{"input required plain", frame(t, types.MsgInputRequired, "Enter a number", nil), KindInputRequired, nil},
		{"invalid choice", frame(t, types.MsgInvalidChoice, "Invalid choice", nil), KindInvalidChoice, nil},
		{"ack", frame(t, types.MsgAck, "ok", nil), KindAck, nil},
		{"server error", frame(t, types.MsgError, "boom", nil), KindServerError, nil},
		{"started", frame(t, types.MsgStarted, "Game started", nil), KindStarted, nil},
		{"state update", frame(t, types.MsgStateUpdate, "", snap), KindStateUpdate, nil},
		{"message", frame(t, types.MsgMessage, "Bo captured RED_1", nil), KindMessage, nil},
		{"dice rolled", frame(t, types.MsgDiceRolled, "Bo rolled 3 and 4", map[string]int{"die1": 3, "die2": 4}), KindDiceRolled, nil},
		{"unknown type", frame(t, "CHAT", "hi", nil), KindUnknown, nil},
		{"state update without data", frame(t, types.MsgStateUpdate, "", nil), KindUnknown, nil},
		{"garbage", []byte("not json"), KindUnknown, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, got := newTestRouter(&fakeSubscriber{})
			r.Handle("/topic/game/ABCD", tc.body)

			require.Len(t, *got, 1)
			in := (*got)[0]
			assert.Equal(t, tc.kind, in.Kind, "kind %s", in.Kind)
			var nums []int
			for _, o := range in.Options {
				nums = append(nums, o.Number)
			}
			assert.Equal(t, tc.options, nums)
		})
	}
}

func TestRouter_UnknownIsForwardedVerbatim(t *testing.T) {
	r, got := newTestRouter(&fakeSubscriber{})
	body := frame(t, "LEADERBOARD", "top players", map[string]int{"n": 3})

	r.Handle("/topic/game/ABCD", body)

	in := (*got)[0]
	assert.Equal(t, KindUnknown, in.Kind)
	assert.Equal(t, "LEADERBOARD", in.Type)
	assert.Equal(t, "top players", in.Message)
	assert.Equal(t, body, in.Raw)
	assert.NoError(t, in.Err)
}

func TestRouter_MalformedCarriesProtocolError(t *testing.T) {
	r, got := newTestRouter(&fakeSubscriber{})
	r.Handle("/topic/game/ABCD", []byte("{"))
	assert.ErrorIs(t, (*got)[0].Err, ErrMalformedFrame)
}

func TestRouter_StateUpdateDecoded(t *testing.T) {
	r, got := newTestRouter(&fakeSubscriber{})
	body := []byte(`{"type":"STATE_UPDATE","data":{"dice":{"die1":1,"die2":6},"currentPlayerId":"p2",
		"pieces":[{"id":"RED_1","color":"RED","position":{"row":6,"col":1},"atHome":true}],"gameOver":false}}`)

	r.Handle("/topic/game/ABCD", body)

	in := (*got)[0]
	require.Equal(t, KindStateUpdate, in.Kind)
	require.NotNil(t, in.Snapshot)
	assert.Equal(t, "p2", in.Snapshot.CurrentPlayerID)
	assert.Equal(t, types.Dice{Die1: 1, Die2: 6}, in.Snapshot.Dice)
	assert.True(t, in.Snapshot.Pieces[0].AtHome)
}

func TestRouter_DiceRolledValues(t *testing.T) {
	r, got := newTestRouter(&fakeSubscriber{})
	r.Handle("/topic/game/ABCD", frame(t, types.MsgDiceRolled, "Bo rolled", map[string]int{"die1": 3, "die2": 4}))
	r.Handle("/topic/game/ABCD", frame(t, types.MsgDiceRolled, "Bo rolled", nil))

	require.NotNil(t, (*got)[0].Dice)
	assert.Equal(t, types.Dice{Die1: 3, Die2: 4}, *(*got)[0].Dice)
	assert.Nil(t, (*got)[1].Dice)
}

func TestExtractGameID(t *testing.T) {
	cases := []struct {
		msg  string
		data string
		want string
		ok   bool
	}{
		{"Game ABCD created", "", "ABCD", true},
		{"Game 1234 joined successfully", "", "1234", true},
		{"You joined", `{"gameId":"XY"}`, "XY", true},
		{"Game ABCD created", `{"gameId":"OVERRIDE"}`, "OVERRIDE", true},
		{"Welcome", "", "", false},
		{"Game over", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			var data json.RawMessage
			if tc.data != "" {
				data = json.RawMessage(tc.data)
			}
			id, ok := ExtractGameID(tc.msg, data)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestSettles(t *testing.T) {
	assert.True(t, Settles(KindStateUpdate))
	assert.True(t, Settles(KindInvalidChoice))
	assert.False(t, Settles(KindMessage))
	assert.False(t, Settles(KindUnknown))
	assert.Equal(t, "/app/game/roll", ActionRoll.Destination())
}
