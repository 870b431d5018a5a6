package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/rupeeback/verify/internal/config"
	"github.com/rupeeback/verify/internal/migration"
	"github.com/rupeeback/verify/internal/observability"
	"github.com/rupeeback/verify/internal/server"
	"github.com/rupeeback/verify/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the process-wide ID generator. NODE_ID must
// differ between instances so generated IDs never collide.
func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = n
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
