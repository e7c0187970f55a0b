package warehouse

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_bindNamed_Placeholders(t *testing.T) {
	cases := []struct {
		name     string
		bindType int
		query    string
		want     string
		args     []any
	}{
		{"question", sqlx.QUESTION, "SELECT * FROM users WHERE email = :email AND id = :id", "SELECT * FROM users WHERE email = ? AND id = ?", []any{"a@x.com", 7}},
		{"dollar", sqlx.DOLLAR, "SELECT * FROM users WHERE email = :email AND id = :id", "SELECT * FROM users WHERE email = $1 AND id = $2", []any{"a@x.com", 7}},
		{"repeated name", sqlx.DOLLAR, "SELECT :id, :id", "SELECT $1, $2", []any{7, 7}},
		{"cast is kept", sqlx.DOLLAR, "SELECT x::int, :id::text FROM t", "SELECT x::int, $1::text FROM t", []any{7}},
		{"single quoted colon", sqlx.QUESTION, "SELECT '10:30' AS t, :id AS v", "SELECT '10:30' AS t, ? AS v", []any{7}},
		{"escaped quote", sqlx.QUESTION, "SELECT 'it''s :email', :id", "SELECT 'it''s :email', ?", []any{7}},
		{"quoted identifier", sqlx.QUESTION, `SELECT "a:b" FROM t WHERE id = :id`, `SELECT "a:b" FROM t WHERE id = ?`, []any{7}},
		{"line comment", sqlx.QUESTION, "SELECT :id -- at :email\nFROM t", "SELECT ? -- at :email\nFROM t", []any{7}},
		{"block comment", sqlx.QUESTION, "SELECT /* :email */ :id", "SELECT /* :email */ ?", []any{7}},
		{"dollar quoted body", sqlx.DOLLAR, "SELECT $$ :email $$, $tag$ :email $tag$, :id", "SELECT $$ :email $$, $tag$ :email $tag$, $1", []any{7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, args, err := bindNamed(tc.bindType, tc.query, Params{"email": "a@x.com", "id": 7})

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.args, args)
		})
	}
}

func Test_bindNamed_EmptyParamsIsVerbatim(t *testing.T) {
	got, args, err := bindNamed(sqlx.DOLLAR, "SELECT 'a:b', :notbound", nil)

	require.NoError(t, err)
	assert.Equal(t, "SELECT 'a:b', :notbound", got)
	assert.Nil(t, args)
}

func Test_bindNamed_MissingParam(t *testing.T) {
	_, _, err := bindNamed(sqlx.QUESTION, "SELECT :a, :b", Params{"a": 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing parameter "b"`)
}
