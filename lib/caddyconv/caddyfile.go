package caddyconv

import (
	"fmt"
	"strconv"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

func init() {
	httpcaddyfile.RegisterHandlerDirective("imgconv", parseCaddyfile)
	httpcaddyfile.RegisterDirectiveOrder("imgconv", httpcaddyfile.Before, "respond")
}

func parseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	handler := new(Handler)
	if err := handler.UnmarshalCaddyfile(h.Dispenser); err != nil {
		return nil, err
	}
	return handler, nil
}

// UnmarshalCaddyfile sets up the handler from Caddyfile tokens.
//
//	imgconv [<format>] {
//		workers       <n>
//		format        <format>
//		quality       <1-100>
//		job_timeout   <duration>
//		max_file_size <bytes>
//	}
func (T *Handler) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	d.Next() // directive name

	if d.NextArg() {
		T.Format = d.Val()
	}
	if d.NextArg() {
		return d.ArgErr()
	}

	for nesting := d.Nesting(); d.NextBlock(nesting); {
		directive := d.Val()
		if !d.NextArg() {
			return d.Errf("expected %s value", directive)
		}

		switch directive {
		case "name":
			T.Name = d.Val()
		case "workers":
			n, err := strconv.Atoi(d.Val())
			if err != nil {
				return d.Errf("workers: %v", err)
			}
			T.Workers = n
		case "format":
			T.Format = d.Val()
		case "quality":
			n, err := strconv.Atoi(d.Val())
			if err != nil {
				return d.Errf("quality: %v", err)
			}
			T.Quality = n
		case "job_timeout":
			dur, err := caddy.ParseDuration(d.Val())
			if err != nil {
				return d.Errf("job_timeout: %v", err)
			}
			T.JobTimeout = caddy.Duration(dur)
		case "max_file_size":
			n, err := strconv.ParseInt(d.Val(), 10, 64)
			if err != nil {
				return d.Errf("max_file_size: %v", err)
			}
			T.MaxFileSize = n
		default:
			return fmt.Errorf("unknown imgconv directive: %s", directive)
		}
	}

	return nil
}

var _ caddyfile.Unmarshaler = (*Handler)(nil)
