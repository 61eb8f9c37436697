// Package server exposes prepared tiles over HTTP: GET /{z}/{x}/{y}.mvt
// serves from the tiles table and renders live above the prepared zoom
// watermark.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/vesavlad/tiles/render"
	"github.com/vesavlad/tiles/tile"
	"github.com/vesavlad/tiles/tiledb"
)

const contentType = "application/vnd.mapbox-vector-tile"

// NewApp builds the fiber app with the tile route and CORS handling.
func NewApp(h *tiledb.Handle, ctx *render.Context) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	app.Get("/:z/:x/:y.mvt", tileHandler(h, ctx))
	return app
}

// Run serves tiles until SIGINT or SIGTERM.
func Run(h *tiledb.Handle, port int) error {
	ctx, err := render.NewContext(h.DB, h.Log)
	if err != nil {
		return err
	}
	app := NewApp(h, ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()
	h.Log.Info("serving tiles", zap.Int("port", port),
		zap.Bool("prepared", ctx.HasPrepared), zap.Uint32("max_prepared_z", ctx.MaxPrepared))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		h.Log.Info("shutting down")
		return app.Shutdown()
	}
}

func tileHandler(h *tiledb.Handle, ctx *render.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := parseTile(c)
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}

		data, err := render.Fetch(h, ctx, t)
		if err != nil {
			h.Log.Error("render failed", zap.Stringer("tile", t), zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(data)
	}
}

func parseTile(c *fiber.Ctx) (tile.Tile, error) {
	z, err := strconv.ParseUint(c.Params("z"), 10, 32)
	if err != nil {
		return tile.Tile{}, err
	}
	x, err := strconv.ParseUint(c.Params("x"), 10, 32)
	if err != nil {
		return tile.Tile{}, err
	}
	y, err := strconv.ParseUint(c.Params("y"), 10, 32)
	if err != nil {
		return tile.Tile{}, err
	}
	t := tile.Tile{Z: uint32(z), X: uint32(x), Y: uint32(y)}
	if !t.Valid() {
		return tile.Tile{}, fmt.Errorf("server: tile %v outside pyramid", t)
	}
	return t, nil
}
