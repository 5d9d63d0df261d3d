package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mazerunner/internal/navigation"
)

func TestJoinRequestEncode(t *testing.T) {
	req := JoinRequest{LobbyName: "TestLobby", TeamName: "BTeam", PlayerName: "Player4"}

	data, err := req.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"lobby_name":"TestLobby","team_name":"BTeam","player_name":"Player4"}`, string(data))
}

func TestJoinRequestValidate(t *testing.T) {
	long := strings.Repeat("x", 21)
	tests := []struct {
		name    string
		req     JoinRequest
		wantErr bool
	}{
		{name: "valid", req: JoinRequest{LobbyName: "L", TeamName: "T", PlayerName: "P"}},
		{name: "max length", req: JoinRequest{LobbyName: strings.Repeat("x", 20), TeamName: "T", PlayerName: "P"}},
		{name: "empty lobby", req: JoinRequest{TeamName: "T", PlayerName: "P"}, wantErr: true},
		{name: "long team", req: JoinRequest{LobbyName: "L", TeamName: long, PlayerName: "P"}, wantErr: true},
		{name: "empty player", req: JoinRequest{LobbyName: "L", TeamName: "T"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJoin)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEncodeMove(t *testing.T) {
	for _, d := range []navigation.Direction{navigation.Up, navigation.Down, navigation.Left, navigation.Right} {
		data, err := EncodeMove(d)
		require.NoError(t, err)
		assert.Equal(t, string(d), string(data))
	}

	_, err := EncodeMove(navigation.DirectionError)
	assert.ErrorIs(t, err, ErrInvalidMove)
}

func TestDecodeScores(t *testing.T) {
	s, err := DecodeScores("games/L/scores", []byte(`{"ATeam":3,"BTeam":5}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ATeam":3,"BTeam":5}`, string(s.Raw))

	_, err = DecodeScores("games/L/scores", []byte(`ATeam: 3`))
	assert.ErrorIs(t, err, ErrDecode)
}
