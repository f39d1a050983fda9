package main

import (
	"context"

	"gfx.cafe/util/go/gotel"
	caddycmd "github.com/caddyserver/caddy/v2/cmd"
	_ "github.com/caddyserver/caddy/v2/modules/metrics"
	_ "github.com/caddyserver/caddy/v2/modules/standard"

	_ "gfx.cafe/gfx/imgconv/lib/caddyconv"
)

func main() {
	fn, _ := gotel.InitTracing(context.Background(), gotel.WithServiceName("imgconv"))
	defer fn(context.Background())

	caddycmd.Main()
}
