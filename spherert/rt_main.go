package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	spheres "github.com/gekko3d/spheres"
	"github.com/gekko3d/spheres/spherert/rt/app"
	"github.com/gekko3d/spheres/spherert/rt/debugview"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

type windowEvents struct {
	window *glfw.Window
}

func (e windowEvents) PollEvents()       { glfw.PollEvents() }
func (e windowEvents) ShouldClose() bool { return e.window.ShouldClose() }

func main() {
	cfg := app.DefaultConfig()
	flag.IntVar(&cfg.Width, "width", cfg.Width, "Window width")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "Window height")
	flag.IntVar(&cfg.SphereCount, "spheres", cfg.SphereCount, "Number of spheres to generate")
	materials := flag.Uint("materials", uint(cfg.MaterialCapacity), "Material table size")
	workgroup := flag.Uint("workgroup", uint(cfg.WorkgroupSize), "Compute workgroup size (must match the shader)")
	flag.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Scene generator seed")
	noCompute := flag.Bool("no-compute", false, "Skip the per-frame compute pass")
	flag.BoolVar(&cfg.LoadOnly, "load-only", false, "Keep previous frame contents instead of clearing")
	light := flag.String("light", "", "Fixed light position x,y,z (default: light follows the camera)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	flag.StringVar(&cfg.Snapshot, "snapshot", "", "Render one frame offscreen and write its depth buffer to this PNG")
	stats := flag.Bool("stats", false, "Print frame timings on exit")
	flag.Parse()

	cfg.MaterialCapacity = uint32(*materials)
	cfg.WorkgroupSize = uint32(*workgroup)
	cfg.Compute = !*noCompute
	if *light != "" {
		pos, err := app.ParseVec3(*light)
		if err != nil {
			panic(err)
		}
		cfg.Light = app.LightFixed{Position: pos}
	}
	cfg = cfg.Normalize()

	log := spheres.NewDefaultLogger("spheres", cfg.Debug)

	if cfg.Snapshot != "" {
		if err := snapshot(cfg, log); err != nil {
			log.Errorf("snapshot: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	renderer, err := app.NewRenderer(window, cfg, log)
	if err != nil {
		panic(err)
	}
	defer renderer.Release()

	if err := renderer.LoadDefaultScene(); err != nil {
		panic(err)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if err := renderer.Resize(width, height); err != nil {
			log.Errorf("resize: %v", err)
		}
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyW:
			renderer.MoveForward(1)
		case glfw.KeyS:
			renderer.MoveForward(-1)
		case glfw.KeyD:
			renderer.MoveRight(1)
		case glfw.KeyA:
			renderer.MoveRight(-1)
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loop := &app.Loop{
		Events:   windowEvents{window: window},
		Frames:   renderer,
		Clock:    app.NewRealClock(),
		Log:      log,
		Profiler: renderer.Profiler,
	}
	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("render loop: %v", err)
	}
	if *stats {
		fmt.Printf("FPS: %.1f\n%s", loop.FPS, renderer.Profiler.GetStatsString())
	}
}

func snapshot(cfg app.Config, log spheres.Logger) error {
	renderer, err := app.NewHeadlessRenderer(cfg, log)
	if err != nil {
		return err
	}
	defer renderer.Release()

	if err := renderer.LoadDefaultScene(); err != nil {
		return err
	}
	if err := renderer.RenderFrame(); err != nil {
		return err
	}
	depth, w, h, err := renderer.ReadDepth()
	if err != nil {
		return err
	}

	img, err := debugview.DepthImage(debugview.StretchDepth(depth), int(w), int(h))
	if err != nil {
		return err
	}
	debugview.Annotate(img, fmt.Sprintf("%d spheres  %dx%d", cfg.SphereCount, w, h))
	if err := debugview.WritePNG(cfg.Snapshot, img); err != nil {
		return err
	}
	log.Infof("wrote %s", cfg.Snapshot)
	return nil
}
