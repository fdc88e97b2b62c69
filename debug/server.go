// Package debug exposes a small HTTP endpoint reporting the live machine
// state as JSON, for headless inspection of a running emulator.
package debug

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"nescore/emu"
	"nescore/emu/log"
)

type Server struct {
	nes *emu.NES
	srv *http.Server
}

func NewServer(nes *emu.NES, addr string) *Server {
	s := &Server{nes: nes}

	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		log.ModEmu.InfoZ("debug server listening").String("addr", s.srv.Addr).End()
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.ModEmu.ErrorZ("debug server failed").Error("err", err).End()
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder

	cpu := s.nes.CPU
	ppu := s.nes.PPU

	e.ObjStart()

	e.FieldStart("cpu")
	e.ObjStart()
	e.FieldStart("pc")
	e.Int(int(cpu.PC))
	e.FieldStart("a")
	e.Int(int(cpu.A))
	e.FieldStart("x")
	e.Int(int(cpu.X))
	e.FieldStart("y")
	e.Int(int(cpu.Y))
	e.FieldStart("sp")
	e.Int(int(cpu.SP))
	e.FieldStart("p")
	e.Str(cpu.P.String())
	e.FieldStart("clock")
	e.Int(int(cpu.Clock))
	e.FieldStart("halted")
	e.Bool(cpu.IsHalted())
	e.ObjEnd()

	e.FieldStart("ppu")
	e.ObjStart()
	e.FieldStart("scanline")
	e.Int(ppu.Scanline)
	e.FieldStart("dot")
	e.Int(int(ppu.Cycle))
	e.FieldStart("frame")
	e.Int(int(ppu.FrameCount))
	e.ObjEnd()

	e.FieldStart("apu")
	e.ObjStart()
	e.FieldStart("status")
	e.Int(int(s.nes.APU.Status()))
	e.ObjEnd()

	e.FieldStart("region")
	e.Str(s.nes.Region.String())

	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Write(e.Bytes())
}
