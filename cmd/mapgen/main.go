// Map generation tool - produces island map files from simplex noise.
//
// Usage: go run ./cmd/mapgen -rows 20 -cols 30 -seed 7 -out island.txt
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pthm-cable/biosim/mapgen"
)

func main() {
	rows := flag.Int("rows", 20, "Grid height in cells")
	cols := flag.Int("cols", 30, "Grid width in cells")
	seed := flag.Int64("seed", 0, "Noise seed (0 = derive from clock)")
	octaves := flag.Int("octaves", 0, "Noise octaves (0 = default)")
	frequency := flag.Float64("frequency", 0, "Base noise frequency (0 = default)")
	persistence := flag.Float64("persistence", 0, "Per-octave amplitude decay (0 = default)")
	out := flag.String("out", "", "Output file (empty = stdout)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	params := mapgen.DefaultParams(*rows, *cols)
	if *octaves > 0 {
		params.Octaves = *octaves
	}
	if *frequency > 0 {
		params.Frequency = *frequency
	}
	if *persistence > 0 {
		params.Persistence = *persistence
	}

	text, err := mapgen.Generate(*seed, params)
	if err != nil {
		log.Fatalf("failed to generate map: %v", err)
	}

	if *out == "" {
		fmt.Println(text)
	} else if err := os.WriteFile(*out, []byte(text+"\n"), 0644); err != nil {
		log.Fatalf("failed to write %s: %v", *out, err)
	}

	counts := mapgen.Census(text)
	habitable := counts['J'] + counts['S'] + counts['D']
	fmt.Fprintf(os.Stderr, "seed %d: %d cells, %d habitable (J %d, S %d, D %d, M %d, O %d)\n",
		*seed, *rows**cols, habitable,
		counts['J'], counts['S'], counts['D'], counts['M'], counts['O'])
}
