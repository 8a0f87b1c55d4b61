package search

import (
	"fmt"
	"math"

	"github.com/likeligrid/likeligrid/pkg/utils"
)

// Vicinity builds one axis per coordinate of center: breaks evenly spaced values
// from x+width down to x-width, keeping only positive values.
// Near zero the axis loses its lower points and is no longer symmetric.
func Vicinity(center []float64, breaks int, width float64) [][]float64 {
	axes := make([][]float64, len(center))
	for i, x := range center {
		axis := utils.LinSpace(breaks, x+width, x-width)
		kept := axis[:0]
		for _, v := range axis {
			if v > 0 {
				kept = append(kept, v)
			}
		}
		axes[i] = kept
	}
	return axes
}

// Product is the Cartesian product of axes in lexicographic order:
// the last axis varies fastest.
type Product struct {
	axes  [][]float64
	count int
}

// NewProduct creates the product of axes.
// It fails with ErrGridTooLarge when the number of points does not fit in an int.
func NewProduct(axes [][]float64) (*Product, error) {
	count := 1
	for i, a := range axes {
		n := len(a)
		if n > 0 && count > math.MaxInt/n {
			return nil, fmt.Errorf("%w: %d axes, overflow at axis %d", ErrGridTooLarge, len(axes), i)
		}
		count *= n
	}
	return &Product{axes: axes, count: count}, nil
}

// Count returns the number of points
func (p *Product) Count() int {
	return p.count
}

// Axes returns the axes the product was built from
func (p *Product) Axes() [][]float64 {
	return p.axes
}

// Iter returns an iterator starting after the first skip points
func (p *Product) Iter(skip int) *ProductIterator {
	if skip < 0 {
		skip = 0
	}
	return &ProductIterator{p: p, index: skip - 1}
}

// ProductIterator walks a Product; call Next before every Point
type ProductIterator struct {
	p      *Product
	digits []int
	index  int
}

// Next advances to the next point and reports whether one exists
func (it *ProductIterator) Next() bool {
	if it.index+1 >= it.p.count {
		it.index = it.p.count
		return false
	}
	it.index++
	if it.digits == nil {
		it.digits = make([]int, len(it.p.axes))
		rest := it.index
		for i := len(it.p.axes) - 1; i >= 0; i-- {
			n := len(it.p.axes[i])
			it.digits[i] = rest % n
			rest /= n
		}
		return true
	}
	for i := len(it.digits) - 1; i >= 0; i-- {
		it.digits[i]++
		if it.digits[i] < len(it.p.axes[i]) {
			break
		}
		it.digits[i] = 0
	}
	return true
}

// Index returns the absolute position of the current point
func (it *ProductIterator) Index() int {
	return it.index
}

// Point returns a fresh copy of the current point
func (it *ProductIterator) Point() []float64 {
	point := make([]float64, len(it.digits))
	for i, d := range it.digits {
		point[i] = it.p.axes[i][d]
	}
	return point
}
