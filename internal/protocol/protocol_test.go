package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfelt/feltserver/internal/deck"
)

func holdemHand(t *testing.T) *deck.HandRecord {
	t.Helper()
	hr := deck.NewHandRecord(2, 4)
	hr.SetPrivate(0, 0, cards(t, "AhKd"))
	hr.SetPrivate(1, 0, cards(t, "2c2d"))
	hr.SetPublic(1, cards(t, "7s8s9s"))
	hr.SetPublic(2, cards(t, "Tc"))
	hr.SetPublic(3, cards(t, "Jd"))
	return hr
}

func cards(t *testing.T, s string) []deck.Card {
	t.Helper()
	var out []deck.Card
	for i := 0; i < len(s); i += 2 {
		c, err := deck.ParseCard(s[i : i+2])
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestCardsViewPreflop(t *testing.T) {
	hr := holdemHand(t)

	assert.Equal(t, "AhKd|", CardsView(hr, 0, 0))
	assert.Equal(t, "|2c2d", CardsView(hr, 1, 0))
}

func TestCardsViewRevealsBoardPerRound(t *testing.T) {
	hr := holdemHand(t)

	assert.Equal(t, "AhKd|/7s8s9s", CardsView(hr, 0, 1))
	assert.Equal(t, "AhKd|/7s8s9s/Tc", CardsView(hr, 0, 2))
	assert.Equal(t, "|2c2d/7s8s9s/Tc/Jd", CardsView(hr, 1, 3))
}

func TestShowdownCardsView(t *testing.T) {
	hr := holdemHand(t)

	assert.Equal(t, "AhKd|2c2d/7s8s9s/Tc/Jd", ShowdownCardsView(hr))
}

func TestMatchState(t *testing.T) {
	got := MatchState(1, 42, "crc/cc", "|2c2d/7s8s9s")
	assert.Equal(t, "MATCHSTATE:1:42:crc/cc:|2c2d/7s8s9s", got)
}

func TestParseConnect(t *testing.T) {
	req, err := ParseConnect("SocketPlayer:alice:1000:0")
	require.NoError(t, err)
	assert.Equal(t, &ConnectRequest{Kind: KindSocket, Name: "alice", BuyIn: 1000, Seat: 0}, req)

	req, err = ParseConnect("GUIPlayer:bob:500:1")
	require.NoError(t, err)
	assert.Equal(t, KindGUI, req.Kind)

	req, err = ParseConnect("AAAIPlayer:carol:500:1:/opt/bots/run.sh")
	require.NoError(t, err)
	assert.Equal(t, KindBot, req.Kind)
	assert.Equal(t, "/opt/bots/run.sh", req.Script)

	for _, bad := range []string{
		"",
		"SocketPlayer:alice:1000",
		"SocketPlayer::1000:0",
		"SocketPlayer:alice:zero:0",
		"SocketPlayer:alice:1000:-1",
		"AAAIPlayer:carol:500:1",
		"AAAIPlayer:carol:500:1:",
		"Martian:alice:1000:0",
	} {
		_, err := ParseConnect(bad)
		assert.Error(t, err, "line %q", bad)
	}
}

func TestIsVersion(t *testing.T) {
	assert.True(t, IsVersion("Version:1.0.0"))
	assert.True(t, IsVersion("VERSION:1.0.0"))
	assert.True(t, IsVersion("version:1.0.0\r"))
	assert.False(t, IsVersion("Version:2.0.0"))
	assert.False(t, IsVersion("Version"))
}

func TestParseAction(t *testing.T) {
	hand, log, action, err := ParseAction("MATCHSTATE:0:7:crc:AhKd|:r20")
	require.NoError(t, err)
	assert.Equal(t, 7, hand)
	assert.Equal(t, "crc", log)
	assert.Equal(t, "r20", action)

	// Older clients may omit the echoed log.
	hand, log, action, err = ParseAction("MATCHSTATE:0:3:f")
	require.NoError(t, err)
	assert.Equal(t, 3, hand)
	assert.Empty(t, log)
	assert.Equal(t, "f", action)

	for _, bad := range []string{"", "MATCHSTATE:0:x:f", "MATCHSTATE:0:1:", "f"} {
		_, _, _, err := ParseAction(bad)
		assert.Error(t, err, "line %q", bad)
	}
}

func TestMarkers(t *testing.T) {
	assert.Equal(t, "#PLAYERS||a:0:100|b:1:100", Roster([]string{"a:0:100", "b:1:100"}))
	assert.Equal(t, "#GAMEOVER", GameOver(""))
	assert.Equal(t, "#GAMEOVER||https://example.com/survey", GameOver("https://example.com/survey"))
	assert.Equal(t, "#SHOWDOWN||alice won 4", Showdown("alice won 4"))
}
