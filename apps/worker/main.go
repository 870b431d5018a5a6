// Command worker runs the verification pipeline without the HTTP
// surface. It relies on the sweeper to pick up pending bills, so it can
// scale independently of the API instances.
package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/rupeeback/verify/internal/bill"
	"github.com/rupeeback/verify/internal/cashback"
	"github.com/rupeeback/verify/internal/clock"
	"github.com/rupeeback/verify/internal/config"
	"github.com/rupeeback/verify/internal/fraud"
	"github.com/rupeeback/verify/internal/imagestore"
	"github.com/rupeeback/verify/internal/merchant"
	"github.com/rupeeback/verify/internal/migration"
	"github.com/rupeeback/verify/internal/observability"
	"github.com/rupeeback/verify/internal/ocr"
	"github.com/rupeeback/verify/internal/ratelimit"
	"github.com/rupeeback/verify/internal/verification"
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

		bill.Module,
		merchant.Module,
		cashback.Module,
		fraud.Module,
		ocr.Module,
		imagestore.Module,
		ratelimit.Module,
		verification.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(2)
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
