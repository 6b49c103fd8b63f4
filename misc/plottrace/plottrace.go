// plottrace plots the log-likelihood trajectory of a polycoi run.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func main() {
	inF := flag.String("in", "", "trajectory file (TSV, polycoi run --out)")
	outF := flag.String("out", "trace.png", "output image")
	flag.Parse()

	if *inF == "" {
		fmt.Fprintln(os.Stderr, "no input file")
		os.Exit(1)
	}
	f, err := os.Open(*inF)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	// chain -> (iteration, likelihood) points
	traces := make(map[int]plotter.XYs)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			// header
			first = false
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 3 {
			continue
		}
		chain, err := strconv.Atoi(fields[0])
		if err != nil {
			panic(err)
		}
		iter, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			panic(err)
		}
		llik, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			panic(err)
		}
		traces[chain] = append(traces[chain], plotter.XY{X: iter, Y: llik})
	}
	if err := scanner.Err(); err != nil {
		panic(err)
	}

	p, err := plot.New()
	if err != nil {
		panic(err)
	}
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log-likelihood"

	var args []interface{}
	for chain, pts := range traces {
		args = append(args, fmt.Sprintf("chain %d", chain), pts)
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		panic(err)
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, *outF); err != nil {
		panic(err)
	}
}
