package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/danmuck/krelay/internal/config"
	"github.com/danmuck/krelay/internal/logging"
	"github.com/danmuck/krelay/internal/observability"
	"github.com/danmuck/krelay/internal/plugins"
	"github.com/danmuck/krelay/internal/protocol"
	"github.com/danmuck/krelay/internal/protocol/codecs"
	"github.com/danmuck/krelay/internal/protocol/packet"
	"github.com/danmuck/krelay/internal/protocol/schema"
	"github.com/danmuck/krelay/internal/relay"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "cmd/krelayctl/relay.toml"

const usage = `usage: krelayctl <command> [flags]

commands:
  decode  -config relay.toml -dir server <hex>
  replay  -config relay.toml -dir client -in capture.bin -out forwarded.bin
  kinds   -config relay.toml
`

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "krelayctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "decode":
		return runDecode(args[1:], stdout)
	case "replay":
		return runReplay(ctx, args[1:], stdout)
	case "kinds":
		return runKinds(args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// session is everything a subcommand needs after loading relay.toml.
type session struct {
	cfg config.Config
	reg *schema.Registry
}

func loadSession(path string) (session, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return session{}, err
	}
	logging.SetLevel(cfg.LogLevel)
	reg, err := schema.LoadFile(cfg.DefinitionsPath, nil)
	if err != nil {
		return session{}, err
	}
	attached, err := codecs.Register(reg)
	if err != nil {
		return session{}, err
	}
	log.Debug().Int("codecs", len(attached)).Int("kinds", reg.Len()).Msg("krelayctl.loadSession")
	return session{cfg: cfg, reg: reg}, nil
}

func runDecode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "relay config path")
	dirFlag := fs.String("dir", "server", "packet direction: client|server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("decode: expected exactly one hex packet argument")
	}
	dir, err := protocol.ParseDirection(*dirFlag)
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(fs.Arg(0)), ""))
	if err != nil {
		return fmt.Errorf("decode: invalid hex: %w", err)
	}
	s, err := loadSession(*configPath)
	if err != nil {
		return err
	}
	p, err := packet.Decode(s.reg, data, dir)
	if err != nil {
		return err
	}
	if p.Kind() == protocol.KindUnknown {
		fmt.Fprintf(stdout, "%s\n% x\n", p, p.Raw())
		return nil
	}
	fmt.Fprintln(stdout, p)
	return nil
}

func runReplay(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "relay config path")
	dirFlag := fs.String("dir", "client", "packet direction: client|server")
	in := fs.String("in", "", "capture of framed packets")
	out := fs.String("out", "", "destination for forwarded packets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("replay: -in and -out are required")
	}
	dir, err := protocol.ParseDirection(*dirFlag)
	if err != nil {
		return err
	}
	s, err := loadSession(*configPath)
	if err != nil {
		return err
	}

	src, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer src.Close()
	dst, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	defer dst.Close()

	r := relay.New(s.reg,
		relay.WithDropUnknown(s.cfg.DropUnknown),
		relay.WithDropKinds(s.cfg.DropKinds...),
		relay.WithLimits(s.cfg.Limits()),
		relay.WithLogger(observability.InitLogger("krelayctl")),
	)
	if len(s.cfg.Mute) > 0 {
		plugins.Register(plugins.NewMute(s.cfg.Mute...))
	}
	if err := plugins.AttachAll(r); err != nil {
		return err
	}
	stats, err := r.Pipe(ctx, dir, src, dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "read=%d forwarded=%d dropped=%d failed=%d\n",
		stats.Read, stats.Forwarded, stats.Dropped, stats.Failed)
	return dst.Sync()
}

func runKinds(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("kinds", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "relay config path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := loadSession(*configPath)
	if err != nil {
		return err
	}
	for _, kind := range s.reg.Kinds() {
		def, _ := s.reg.ByKind(kind)
		codec := ""
		if def.Codec != nil {
			codec = " (codec)"
		}
		fmt.Fprintf(stdout, "%3d %-20s %s%s\n", def.ID, kind, def.Layout, codec)
	}
	return nil
}
