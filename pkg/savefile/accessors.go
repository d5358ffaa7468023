package savefile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UserID is the fixed record id the game uses for the singleton user
// and gold records.
const UserID = "000000000000000000000001"

// Item is one inventory entry of the main backpack.
type Item struct {
	ID            string
	Name          string // basename of the asset path
	Count         int64
	Durable       bool
	Durability    float64 // hp
	MaxDurability float64 // php
	Bag           bool
}

// AvatarID returns the active avatar's record id from the user
// record.
func (t *Tree) AvatarID() (string, error) {
	id, ok := t.Str(t.Lookup("User/" + UserID + "/dc"))
	if !ok || id == "" {
		return "", errors.New("unable to find the avatar id")
	}
	return id, nil
}

// AvatarName returns the avatar's display name.
func (t *Tree) AvatarName(avatarID string) (string, error) {
	name, ok := t.Str(t.Lookup("CharacterName/" + avatarID + "/fn"))
	if !ok || name == "" {
		return "", errors.New("unable to find the avatar name")
	}
	return name, nil
}

// BackpackID returns the id of the avatar's main backpack record.
func (t *Tree) BackpackID(avatarID string) (string, error) {
	id, ok := t.Str(t.Lookup("Character/" + avatarID + "/mainbp"))
	if !ok || id == "" {
		return "", errors.New("unable to find the main backpack")
	}
	return id, nil
}

// Gold returns the stored gold amount. Only version 2 saves carry the
// gold record.
func (t *Tree) Gold() (int64, error) {
	v, ok := t.Int(t.Lookup("UserGold/" + UserID + "/g"))
	if !ok {
		return 0, errors.New("unable to find user gold")
	}
	return v, nil
}

// EditGold queues a gold change.
func (t *Tree) EditGold(tx *EditTransaction, gold int64) {
	tx.Set("UserGold/"+UserID+"/g", gold)
}

// AdventurerExp returns the avatar's accumulated adventurer
// experience. Both number and numeric-string encodings occur in the
// wild.
func (t *Tree) AdventurerExp(avatarID string) (int64, error) {
	v, ok := t.Int(t.Lookup("CharacterSheet/" + avatarID + "/ae"))
	if !ok {
		return 0, errors.New("unable to find adventurer experience")
	}
	return v, nil
}

// ProducerExp returns the avatar's accumulated producer experience.
func (t *Tree) ProducerExp(avatarID string) (int64, error) {
	v, ok := t.Int(t.Lookup("CharacterSheet/" + avatarID + "/pe"))
	if !ok {
		return 0, errors.New("unable to find producer experience")
	}
	return v, nil
}

// EditAdventurerExp queues an adventurer experience change.
func (t *Tree) EditAdventurerExp(tx *EditTransaction, avatarID string, exp int64) {
	tx.Set("CharacterSheet/"+avatarID+"/ae", exp)
}

// EditProducerExp queues a producer experience change.
func (t *Tree) EditProducerExp(tx *EditTransaction, avatarID string, exp int64) {
	tx.Set("CharacterSheet/"+avatarID+"/pe", exp)
}

// SkillExp returns the stored (multiplier-scaled) experience of one
// skill, or false when the avatar has no row for it.
func (t *Tree) SkillExp(avatarID string, skillID uint64) (int64, bool) {
	path := skillPath(avatarID, skillID) + "/x"
	return t.Int(t.Lookup(path))
}

// SkillIDs lists the skill ids present on the avatar's sheet, in file
// order.
func (t *Tree) SkillIDs(avatarID string) ([]uint64, error) {
	sk2 := t.Lookup("CharacterSheet/" + avatarID + "/sk2")
	if sk2 == nil || sk2.Kind != KindObject {
		return nil, errors.New("unable to find skills")
	}
	ids := make([]uint64, 0, len(sk2.Members))
	for _, m := range sk2.Members {
		id, err := strconv.ParseUint(m.Key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// EditSkillExp queues a scaled-experience change for one skill. An
// existing row is updated in place; otherwise a new row is inserted
// with the sheet's save date. Pass exp 0 to drop the row instead.
func (t *Tree) EditSkillExp(tx *EditTransaction, avatarID string, skillID uint64, exp int64) error {
	path := skillPath(avatarID, skillID)
	if exp <= 0 {
		if t.Lookup(path) != nil {
			tx.Remove(path)
		}
		return nil
	}
	if t.Lookup(path) != nil {
		tx.Set(path+"/x", exp)
		return nil
	}

	date, err := t.skillDate(avatarID)
	if err != nil {
		return err
	}
	row := fmt.Sprintf(`{"m":0,"t":%s,"x":%d}`, date, exp)
	tx.Insert(path, []byte(row))
	return nil
}

// skillDate returns the raw save-date value copied from any existing
// skill row, as new rows need one.
func (t *Tree) skillDate(avatarID string) (string, error) {
	sk2 := t.Lookup("CharacterSheet/" + avatarID + "/sk2")
	if sk2 == nil || sk2.Kind != KindObject {
		return "", errors.New("unable to find skills")
	}
	for _, m := range sk2.Members {
		if tn := m.Val.Member("t"); tn != nil {
			return string(t.Raw(tn)), nil
		}
	}
	return "", errors.New("unable to find the sheet save date")
}

func skillPath(avatarID string, skillID uint64) string {
	return fmt.Sprintf("CharacterSheet/%s/sk2/%d", avatarID, skillID)
}

// Items lists the backpack's inventory entries in file order.
func (t *Tree) Items(backpackID string) ([]Item, error) {
	inv := t.Lookup("ItemStore/" + backpackID + "/in")
	if inv == nil || inv.Kind != KindObject {
		return nil, errors.New("unable to find inventory")
	}
	var items []Item
	for _, m := range inv.Members {
		inner := m.Val.Member("in")
		if inner == nil {
			continue
		}
		cnt, ok := t.Int(inner.Member("qn"))
		if !ok {
			continue
		}
		it := Item{ID: m.Key, Count: cnt, Bag: inner.Member("bag") != nil}
		if an, ok := t.Str(inner.Member("an")); ok {
			if pos := strings.LastIndexByte(an, '/'); pos >= 0 {
				it.Name = an[pos+1:]
			} else {
				it.Name = an
			}
		}
		hp, hok := t.Float(inner.Member("hp"))
		php, pok := t.Float(inner.Member("php"))
		if hok && pok {
			it.Durable = true
			it.Durability = hp
			it.MaxDurability = php
		}
		items = append(items, it)
	}
	return items, nil
}

// EditItemCount queues a quantity change for one inventory entry.
func (t *Tree) EditItemCount(tx *EditTransaction, backpackID, itemID string, count int64) {
	tx.Set(fmt.Sprintf("ItemStore/%s/in/%s/in/qn", backpackID, itemID), count)
}

// EditItemDurability queues a durability change for one inventory
// entry.
func (t *Tree) EditItemDurability(tx *EditTransaction, backpackID, itemID string, hp, maxHP float64) {
	tx.Set(fmt.Sprintf("ItemStore/%s/in/%s/in/hp", backpackID, itemID), hp)
	tx.Set(fmt.Sprintf("ItemStore/%s/in/%s/in/php", backpackID, itemID), maxHP)
}
