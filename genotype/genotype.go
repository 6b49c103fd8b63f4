// Package genotype stores observed presence/absence genotyping data.
package genotype

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("genotype")

// Data is the observed genotyping data for one sample population. It is
// immutable after construction; a chain only reads it.
type Data struct {
	// NumSamples is the number of biological samples.
	NumSamples int `json:"num_samples"`
	// NumLoci is the number of genotyped loci.
	NumLoci int `json:"num_loci"`
	// NumAlleles is the number of possible alleles per locus.
	NumAlleles []int `json:"num_alleles"`
	// Observed[locus][sample][allele] is 1 if the allele was called
	// present in the sample and 0 otherwise.
	Observed [][][]int `json:"observed_alleles"`
	// ObservedCOI is the initial per-sample COI guess, typically the
	// maximum number of alleles seen at any single locus.
	ObservedCOI []int `json:"observed_coi"`
}

// Read reads genotyping data in JSON format and validates it.
func Read(r io.Reader) (*Data, error) {
	d := &Data{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(d); err != nil {
		return nil, fmt.Errorf("decoding genotyping data: %v", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Read genotyping data: %d samples, %d loci", d.NumSamples, d.NumLoci)
	return d, nil
}

// Write writes the data in JSON format.
func (d *Data) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(d)
}

// Validate checks the dimensions of all arrays. Dimension mismatches are
// construction errors; no chain may be created from invalid data.
func (d *Data) Validate() error {
	if d.NumSamples < 1 {
		return fmt.Errorf("need at least one sample, got %d", d.NumSamples)
	}
	if d.NumLoci < 1 {
		return fmt.Errorf("need at least one locus, got %d", d.NumLoci)
	}
	if len(d.NumAlleles) != d.NumLoci {
		return fmt.Errorf("allele counts for %d loci, expected %d",
			len(d.NumAlleles), d.NumLoci)
	}
	if len(d.Observed) != d.NumLoci {
		return fmt.Errorf("observations for %d loci, expected %d",
			len(d.Observed), d.NumLoci)
	}
	for j, locus := range d.Observed {
		if d.NumAlleles[j] < 1 {
			return fmt.Errorf("locus %d: need at least one allele", j)
		}
		if len(locus) != d.NumSamples {
			return fmt.Errorf("locus %d: %d samples, expected %d",
				j, len(locus), d.NumSamples)
		}
		for i, obs := range locus {
			if len(obs) != d.NumAlleles[j] {
				return fmt.Errorf("locus %d, sample %d: %d alleles, expected %d",
					j, i, len(obs), d.NumAlleles[j])
			}
			for _, v := range obs {
				if v != 0 && v != 1 {
					return fmt.Errorf("locus %d, sample %d: observation must be 0 or 1, got %d",
						j, i, v)
				}
			}
		}
	}
	if len(d.ObservedCOI) != d.NumSamples {
		return fmt.Errorf("initial COI for %d samples, expected %d",
			len(d.ObservedCOI), d.NumSamples)
	}
	return nil
}

// MaxNumAlleles returns the largest per-locus allele count.
func (d *Data) MaxNumAlleles() (max int) {
	for _, k := range d.NumAlleles {
		if k > max {
			max = k
		}
	}
	return
}

// EmpiricalFrequencies returns per-locus allele frequencies computed from
// presence counts. Loci where nothing was observed get uniform frequencies.
func (d *Data) EmpiricalFrequencies() [][]float64 {
	p := make([][]float64, d.NumLoci)
	for j := 0; j < d.NumLoci; j++ {
		counts := make([]float64, d.NumAlleles[j])
		total := 0.0
		for i := 0; i < d.NumSamples; i++ {
			for k, v := range d.Observed[j][i] {
				counts[k] += float64(v)
				total += float64(v)
			}
		}
		if total == 0 {
			for k := range counts {
				counts[k] = 1 / float64(d.NumAlleles[j])
			}
		} else {
			for k := range counts {
				counts[k] /= total
			}
		}
		p[j] = counts
	}
	return p
}
