package main

import (
	"context"
	"log"

	"github.com/m00n5h075/serenya-sub003/internal/server"
	"github.com/m00n5h075/serenya-sub003/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
