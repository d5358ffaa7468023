package savefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	avatarID   = "a1b2c3"
	backpackID = "bp42"
	saveDate   = `"/Date(1715100000000)/"`
)

// fixtureBody is a save body with numeric-string experience, unknown
// JSON fields, an unknown collection and uneven whitespace, all of
// which must survive decode and encode untouched.
var fixtureBody = `<collection name="User">
<record Id="` + UserID + `">{"dc":"` + avatarID + `","zz":true}</record>
</collection>
<collection name="CharacterName">
<record Id="` + avatarID + `">{"fn":"Arabella"}</record>
</collection>
<collection name="Character">
<record Id="` + avatarID + `">{"mainbp":"` + backpackID + `"}</record>
</collection>
<collection name="CharacterSheet">
<record Id="` + avatarID + `">{"ae":"746","pe":120,"sk2":{"400":{"m":0,"t":` + saveDate + `,"x":1980},"406":{"m":0,"t":` + saveDate + `,"x":2640}},"flags":[1,2,3]}</record>
</collection>
<collection name="ItemStore">
<record Id="` + backpackID + `">{"in":{"item1":{"in":{"qn":5,"an":"Crafting/Tools/hammer","hp":50.5,"php":75.0}},"item2":{"in":{"qn":1,"bag":1,"an":"Containers/bag"}}}}</record>
</collection>
<collection name="UserGold">
<record Id="` + UserID + `">{"g":5000}</record>
</collection>
<collection name="Modding">
<record Id="weird">{"blob":[true,null,{  "x" : 1 }]}</record>
</collection>
</save>
`

func saveV2(body string) []byte {
	return []byte(fmt.Sprintf("<save version=\"2\" size=\"%d\">\n%s", len(body), body))
}

func saveV1(body string) []byte {
	// Version 1 has no gold collection.
	body = strings.Replace(body,
		"<collection name=\"UserGold\">\n<record Id=\""+UserID+"\">{\"g\":5000}</record>\n</collection>\n", "", 1)
	return []byte("<save version=\"1\">\n" + body)
}

func decodeFixture(t *testing.T) *Tree {
	t.Helper()
	tree, err := Decode(saveV2(fixtureBody))
	require.NoError(t, err)
	return tree
}

func TestRoundTripIdentity(t *testing.T) {
	for name, data := range map[string][]byte{
		"version 1": saveV1(fixtureBody),
		"version 2": saveV2(fixtureBody),
	} {
		t.Run(name, func(t *testing.T) {
			tree, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, data, tree.Encode())
		})
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	data := []byte("<save version=\"9\" size=\"0\">\n</save>\n")
	_, err := Decode(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestDecodeHeaderChecks(t *testing.T) {
	cases := map[string][]byte{
		"no header":        []byte("<collection name=\"User\">\n</collection>\n</save>\n"),
		"size mismatch":    []byte("<save version=\"2\" size=\"99999\">\n" + fixtureBody),
		"v1 with size":     []byte(fmt.Sprintf("<save version=\"1\" size=\"%d\">\n%s", len(fixtureBody), fixtureBody)),
		"v2 without size":  []byte("<save version=\"2\">\n" + fixtureBody),
		"missing end tag":  []byte("<save version=\"1\">\n<collection name=\"X\">\n</collection>\n"),
		"unclosed record":  []byte("<save version=\"1\">\n<collection name=\"X\">\n<record Id=\"1\">{}\n</collection>\n</save>\n"),
		"malformed record": []byte("<save version=\"1\">\n<collection name=\"X\">\n<record Id=\"1\">{\"ae\":}</record>\n</collection>\n</save>\n"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			tree, err := Decode(data)
			require.Error(t, err)
			assert.Nil(t, tree)
			var derr *DecodeError
			assert.ErrorAs(t, err, &derr)
		})
	}
}

func TestAccessors(t *testing.T) {
	tree := decodeFixture(t)

	id, err := tree.AvatarID()
	require.NoError(t, err)
	assert.Equal(t, avatarID, id)

	name, err := tree.AvatarName(id)
	require.NoError(t, err)
	assert.Equal(t, "Arabella", name)

	bp, err := tree.BackpackID(id)
	require.NoError(t, err)
	assert.Equal(t, backpackID, bp)

	gold, err := tree.Gold()
	require.NoError(t, err)
	assert.Equal(t, int64(5000), gold)

	// Stored as a numeric string; reads must stay lenient.
	ae, err := tree.AdventurerExp(id)
	require.NoError(t, err)
	assert.Equal(t, int64(746), ae)

	pe, err := tree.ProducerExp(id)
	require.NoError(t, err)
	assert.Equal(t, int64(120), pe)

	exp, ok := tree.SkillExp(id, 400)
	require.True(t, ok)
	assert.Equal(t, int64(1980), exp)

	ids, err := tree.SkillIDs(id)
	require.NoError(t, err)
	assert.Equal(t, []uint64{400, 406}, ids)

	items, err := tree.Items(bp)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "item1", items[0].ID)
	assert.Equal(t, "hammer", items[0].Name)
	assert.Equal(t, int64(5), items[0].Count)
	require.True(t, items[0].Durable)
	assert.Equal(t, 50.5, items[0].Durability)
	assert.Equal(t, 75.0, items[0].MaxDurability)
	assert.False(t, items[0].Bag)
	assert.Equal(t, "bag", items[1].Name)
	assert.True(t, items[1].Bag)
	assert.False(t, items[1].Durable)
}

func TestApplySetSameLength(t *testing.T) {
	original := saveV2(fixtureBody)
	tree, err := Decode(original)
	require.NoError(t, err)

	tx := NewTransaction()
	tree.EditGold(tx, 9999)
	require.NoError(t, tree.Apply(tx))

	gold, err := tree.Gold()
	require.NoError(t, err)
	assert.Equal(t, int64(9999), gold)

	// Only the gold digits changed.
	want := strings.Replace(string(original), `"g":5000`, `"g":9999`, 1)
	assert.Equal(t, want, string(tree.Encode()))
}

func TestApplySetRecomputesSize(t *testing.T) {
	tree := decodeFixture(t)

	tx := NewTransaction()
	tree.EditItemCount(tx, backpackID, "item1", 123)
	require.NoError(t, tree.Apply(tx))

	newBody := strings.Replace(fixtureBody, `"qn":5`, `"qn":123`, 1)
	assert.Equal(t, saveV2(newBody), tree.Encode())

	items, err := tree.Items(backpackID)
	require.NoError(t, err)
	assert.Equal(t, int64(123), items[0].Count)
}

func TestApplyAllOrNothing(t *testing.T) {
	original := saveV2(fixtureBody)
	tree, err := Decode(original)
	require.NoError(t, err)

	tx := NewTransaction()
	tree.EditGold(tx, 4242)
	tree.EditItemCount(tx, backpackID, "item1", -1) // below range

	err = tree.Apply(tx)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// Nothing changed, valid edit included.
	assert.Equal(t, original, tree.Encode())
	gold, err := tree.Gold()
	require.NoError(t, err)
	assert.Equal(t, int64(5000), gold)
}

func TestApplyValidation(t *testing.T) {
	tree := decodeFixture(t)

	cases := []struct {
		name string
		edit func(tx *EditTransaction)
	}{
		{"unknown field", func(tx *EditTransaction) { tx.Set("User/"+UserID+"/zz", false) }},
		{"wrong kind", func(tx *EditTransaction) { tx.Set("CharacterName/"+avatarID+"/fn", 42) }},
		{"not an integer", func(tx *EditTransaction) { tx.Set("CharacterSheet/"+avatarID+"/ae", 3.5) }},
		{"missing path", func(tx *EditTransaction) { tx.Set("CharacterSheet/"+avatarID+"/nope", 1) }},
		{"missing record", func(tx *EditTransaction) { tx.Set("CharacterSheet/zzzz/ae", 1) }},
		{"path too short", func(tx *EditTransaction) { tx.Set("CharacterSheet/"+avatarID, 1) }},
		{"insert existing", func(tx *EditTransaction) {
			tx.Insert("CharacterSheet/"+avatarID+"/sk2/400", []byte(`{"m":0,"t":"x","x":1}`))
		}},
		{"insert bad json", func(tx *EditTransaction) {
			tx.Insert("CharacterSheet/"+avatarID+"/sk2/513", []byte(`{"m":`))
		}},
		{"insert unknown member", func(tx *EditTransaction) {
			tx.Insert("CharacterSheet/"+avatarID+"/sk2/513", []byte(`{"m":0,"t":"x","x":1,"surprise":2}`))
		}},
		{"remove unknown field", func(tx *EditTransaction) { tx.Remove("User/" + UserID + "/zz") }},
		{"remove missing", func(tx *EditTransaction) { tx.Remove("CharacterSheet/" + avatarID + "/sk2/999") }},
	}

	original := tree.Encode()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := NewTransaction()
			tc.edit(tx)
			err := tree.Apply(tx)
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Equal(t, original, tree.Encode())
		})
	}
}

func TestConflictingEdits(t *testing.T) {
	tree := decodeFixture(t)

	tx := NewTransaction()
	tree.EditGold(tx, 1)
	tree.EditGold(tx, 2)

	err := tree.Apply(tx)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "conflicts")
}

func TestSkillRowEdits(t *testing.T) {
	tree := decodeFixture(t)

	// New skill: inserted with the sheet's save date.
	tx := NewTransaction()
	require.NoError(t, tree.EditSkillExp(tx, avatarID, 513, 3000))
	require.NoError(t, tree.Apply(tx))

	exp, ok := tree.SkillExp(avatarID, 513)
	require.True(t, ok)
	assert.Equal(t, int64(3000), exp)
	date, ok := tree.Str(tree.Lookup("CharacterSheet/" + avatarID + "/sk2/513/t"))
	require.True(t, ok)
	assert.Equal(t, "/Date(1715100000000)/", date)

	// Existing skill: updated in place.
	tx = NewTransaction()
	require.NoError(t, tree.EditSkillExp(tx, avatarID, 406, 9000))
	require.NoError(t, tree.Apply(tx))
	exp, ok = tree.SkillExp(avatarID, 406)
	require.True(t, ok)
	assert.Equal(t, int64(9000), exp)

	// Zero experience drops the row.
	tx = NewTransaction()
	require.NoError(t, tree.EditSkillExp(tx, avatarID, 400, 0))
	require.NoError(t, tree.Apply(tx))
	_, ok = tree.SkillExp(avatarID, 400)
	assert.False(t, ok)

	ids, err := tree.SkillIDs(avatarID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{406, 513}, ids)
}

func TestInsertTwoRows(t *testing.T) {
	tree := decodeFixture(t)

	tx := NewTransaction()
	require.NoError(t, tree.EditSkillExp(tx, avatarID, 513, 100))
	require.NoError(t, tree.EditSkillExp(tx, avatarID, 514, 200))
	require.NoError(t, tree.Apply(tx))

	ids, err := tree.SkillIDs(avatarID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{400, 406, 513, 514}, ids)
}

func TestRemoveMemberPositions(t *testing.T) {
	sheet := `{"ae":1,"pe":1,"sk2":{"400":{"m":0,"t":"d","x":1},"406":{"m":0,"t":"d","x":2},"410":{"m":0,"t":"d","x":3}}}`
	body := "<collection name=\"CharacterSheet\">\n<record Id=\"av\">" + sheet + "</record>\n</collection>\n</save>\n"

	for _, tc := range []struct {
		name   string
		remove uint64
		want   []uint64
	}{
		{"first", 400, []uint64{406, 410}},
		{"middle", 406, []uint64{400, 410}},
		{"last", 410, []uint64{400, 406}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tree, err := Decode(saveV2(body))
			require.NoError(t, err)

			tx := NewTransaction()
			require.NoError(t, tree.EditSkillExp(tx, "av", tc.remove, 0))
			require.NoError(t, tree.Apply(tx))

			ids, err := tree.SkillIDs("av")
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids)
		})
	}

	t.Run("only member", func(t *testing.T) {
		one := `{"sk2":{"400":{"m":0,"t":"d","x":1}}}`
		body := "<collection name=\"CharacterSheet\">\n<record Id=\"av\">" + one + "</record>\n</collection>\n</save>\n"
		tree, err := Decode(saveV2(body))
		require.NoError(t, err)

		tx := NewTransaction()
		require.NoError(t, tree.EditSkillExp(tx, "av", 400, 0))
		require.NoError(t, tree.Apply(tx))

		ids, err := tree.SkillIDs("av")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestEncodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.sota")
	original := saveV2(fixtureBody)
	require.NoError(t, os.WriteFile(path, original, 0o644))

	tree, err := DecodeFile(path)
	require.NoError(t, err)

	tx := NewTransaction()
	tree.EditGold(tx, 7777)
	require.NoError(t, tree.Apply(tx))
	require.NoError(t, tree.EncodeFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tree.Encode(), data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A failed write leaves the target alone.
	err = tree.EncodeFile(filepath.Join(dir, "missing", "save.sota"))
	require.Error(t, err)
	var eerr *EncodeError
	assert.ErrorAs(t, err, &eerr)

	_, err = DecodeFile(filepath.Join(dir, "nope.sota"))
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.True(t, errors.Is(derr.Err, os.ErrNotExist))
}
