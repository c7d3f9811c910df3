package main

import (
	"context"
	"log"
	_ "time/tzdata" // notify_timezone must resolve in minimal containers

	"github.com/dalemusser/larder/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
