// internal/services/minecraft_service_test.go
package services

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/PabloB07/mcshop/internal/models"
)

func TestRenderCommand(t *testing.T) {
	vars := map[string]string{
		"username": "Steve",
		"uuid":     "069a79f4-44e9-4726-a5be-fca90e38aaf5",
		"group":    "vip",
	}

	got := renderCommand("lp user {username} parent set {group}", vars)
	assert.Equal(t, "lp user Steve parent set vip", got)

	// Unknown placeholders are left verbatim, not expanded.
	got = renderCommand("say hello {unknown}", vars)
	assert.Equal(t, "say hello {unknown}", got)

	// Values are substituted verbatim; usernames are validated upstream.
	got = renderCommand("tell {username} your uuid is {uuid}", vars)
	assert.Equal(t, "tell Steve your uuid is 069a79f4-44e9-4726-a5be-fca90e38aaf5", got)
}

func TestBuildRankCommandsHonorsExecutionOrder(t *testing.T) {
	rank := &models.Rank{
		Name:           "VIP",
		LuckPermsGroup: "vip",
		Commands: []models.RankCommand{
			{Command: "third {username}", CommandType: models.CommandTypeConsole, ExecutionOrder: 30},
			{Command: "first {username}", CommandType: models.CommandTypeLuckPerms, ExecutionOrder: 10},
			{Command: "second {group}", CommandType: models.CommandTypeConsole, ExecutionOrder: 20},
		},
	}

	specs := buildRankCommands(rank, "Alex", "uuid-1")

	assert.Len(t, specs, 3)
	assert.Equal(t, "first Alex", specs[0].Command)
	assert.Equal(t, models.CommandTypeLuckPerms, specs[0].CommandType)
	assert.Equal(t, "second vip", specs[1].Command)
	assert.Equal(t, "third Alex", specs[2].Command)
}

func TestBuildRankCommandsDefault(t *testing.T) {
	rank := &models.Rank{Name: "MVP", LuckPermsGroup: "mvp"}

	specs := buildRankCommands(rank, "Alex", "uuid-1")

	assert.Len(t, specs, 1)
	assert.Equal(t, "lp user Alex parent set mvp", specs[0].Command)
	assert.Equal(t, models.CommandTypeLuckPerms, specs[0].CommandType)
}

func TestBuildItemCommands(t *testing.T) {
	item := &models.GameItem{ItemID: "diamond_sword", Quantity: 2}

	specs := buildItemCommands(item, "Steve", "uuid-1", 3)

	assert.Len(t, specs, 1)
	assert.Equal(t, "give Steve diamond_sword 6", specs[0].Command)
}

func TestBuildItemCommandsCustomTemplates(t *testing.T) {
	item := &models.GameItem{
		ItemID:   "crate_key",
		Quantity: 1,
		Commands: pq.StringArray{
			"crates give {username} vote {quantity}",
			"broadcast {username} opened a crate",
		},
	}

	specs := buildItemCommands(item, "Steve", "uuid-1", 2)

	assert.Len(t, specs, 2)
	assert.Equal(t, "crates give Steve vote 2", specs[0].Command)
	assert.Equal(t, "broadcast Steve opened a crate", specs[1].Command)
}

func TestBuildMoneyCommand(t *testing.T) {
	vault := &models.GameMoney{Amount: 5000, CurrencyType: models.CurrencyTypeVault}
	spec := buildMoneyCommand(vault, "Alex", "uuid-1", 2)
	assert.Equal(t, "eco give Alex 10000", spec.Command)

	points := &models.GameMoney{Amount: 100, CurrencyType: models.CurrencyTypePlayerPoints}
	spec = buildMoneyCommand(points, "Alex", "uuid-1", 1)
	assert.Equal(t, "points give Alex 100", spec.Command)

	custom := &models.GameMoney{Amount: 50, Command: "tokens add {username} {amount}"}
	spec = buildMoneyCommand(custom, "Alex", "uuid-1", 1)
	assert.Equal(t, "tokens add Alex 50", spec.Command)
}

func TestSortRankCommandsStable(t *testing.T) {
	commands := []models.RankCommand{
		{Command: "a", ExecutionOrder: 1},
		{Command: "b", ExecutionOrder: 0},
		{Command: "c", ExecutionOrder: 1},
	}

	sortRankCommands(commands)

	assert.Equal(t, "b", commands[0].Command)
	// Equal orders keep their declared relative position.
	assert.Equal(t, "a", commands[1].Command)
	assert.Equal(t, "c", commands[2].Command)
}
