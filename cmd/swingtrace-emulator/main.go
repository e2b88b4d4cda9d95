// Command swingtrace-emulator generates a synthetic paddle-sensor frame
// stream: quiet rest motion punctuated by swings of varying intensity. Frames
// go to an MQTT broker for the live pipeline, to a capture file for the
// replay transport, or both.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/racketlab/swingtrace/internal/link"
	"github.com/racketlab/swingtrace/internal/motion"
	"github.com/racketlab/swingtrace/internal/wire"
)

var (
	broker     = flag.String("broker", "", "MQTT broker URL (empty disables publishing)")
	topic      = flag.String("topic", link.DefaultFrameTopic, "MQTT frame topic")
	out        = flag.String("out", "", "Capture file to append frames to (empty disables)")
	rateHz     = flag.Int("rate", 20, "Sample rate in Hz")
	swingEvery = flag.Duration("swing-every", 4*time.Second, "Mean interval between swings")
	seed       = flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	battery    = flag.Int("battery", 87, "Reported battery percentage")
)

func main() {
	flag.Parse()
	if *broker == "" && *out == "" {
		log.Fatal("nothing to do: set -broker and/or -out")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(s))

	var client mqtt.Client
	if *broker != "" {
		opts := mqtt.NewClientOptions()
		opts.AddBroker(*broker)
		opts.SetClientID("swingtrace-emulator")
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("failed to connect to broker: %v", token.Error())
		}
		defer client.Disconnect(250)
	}

	var capture *os.File
	if *out != "" {
		var err error
		capture, err = os.OpenFile(*out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open capture file: %v", err)
		}
		defer capture.Close()
	}

	gen := newGenerator(rng, *rateHz, *swingEvery, uint8(*battery))
	interval := time.Second / time.Duration(*rateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("emulating at %d Hz (seed %d)", *rateHz, s)
	frames := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("emitted %d frames", frames)
			return
		case <-ticker.C:
			frame := wire.Encode(gen.next())
			if client != nil {
				client.Publish(*topic, 0, false, frame)
			}
			if capture != nil {
				if _, err := capture.Write(frame); err != nil {
					log.Fatalf("failed to write capture: %v", err)
				}
			}
			frames++
		}
	}
}

// generator produces rest samples with sensor noise and injects a bell-shaped
// swing burst at random intervals.
type generator struct {
	rng        *rand.Rand
	stepMs     uint32
	ts         uint32
	battery    uint8
	swingEvery time.Duration

	swingLeft int     // samples remaining in the active swing
	swingLen  int     // total samples of the active swing
	swingAmp  float64 // peak acceleration above gravity
	gyroAmp   float64
	untilNext int // samples until the next swing starts
}

func newGenerator(rng *rand.Rand, rateHz int, swingEvery time.Duration, battery uint8) *generator {
	g := &generator{
		rng:        rng,
		stepMs:     uint32(1000 / rateHz),
		battery:    battery,
		swingEvery: swingEvery,
	}
	g.scheduleNext(rateHz)
	return g
}

func (g *generator) scheduleNext(rateHz int) {
	mean := float64(g.swingEvery) / float64(time.Second) * float64(rateHz)
	g.untilNext = 1 + int(mean*(0.5+g.rng.Float64()))
}

func (g *generator) next() motion.Sample {
	g.ts += g.stepMs

	sample := motion.Sample{
		TimestampMs: g.ts,
		AccelX:      g.noise(0.3),
		AccelY:      g.noise(0.3),
		AccelZ:      9.8 + g.noise(0.3),
		GyroX:       g.noise(0.1),
		GyroY:       g.noise(0.1),
		GyroZ:       g.noise(0.1),
		BatteryPct:  g.battery,
		HasBattery:  true,
	}

	if g.swingLeft > 0 {
		// Raised-cosine envelope over the burst.
		progress := float64(g.swingLen-g.swingLeft) / float64(g.swingLen)
		envelope := 0.5 * (1 - math.Cos(2*math.Pi*progress))
		sample.AccelX += float32(g.swingAmp * envelope)
		sample.AccelY += float32(g.swingAmp * envelope * 0.4)
		sample.GyroY += float32(g.gyroAmp * envelope)
		sample.GyroZ += float32(g.gyroAmp * envelope * 0.6)
		g.swingLeft--
	} else {
		g.untilNext--
		if g.untilNext <= 0 {
			g.swingLen = 6 + g.rng.Intn(6)
			g.swingLeft = g.swingLen
			g.swingAmp = 20 + g.rng.Float64()*30
			g.gyroAmp = 5 + g.rng.Float64()*8
			g.scheduleNext(int(1000 / g.stepMs))
		}
	}
	return sample
}

func (g *generator) noise(scale float64) float32 {
	return float32(g.rng.NormFloat64() * scale)
}
