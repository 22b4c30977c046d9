package topics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/selivandex/coinpulse/pkg/pipeerrors"
)

// reduce projects embeddings onto their top principal components. The
// component count is clamped so it never exceeds what the data can support.
func reduce(embeddings [][]float64, components int) ([][]float64, error) {
	n := len(embeddings)
	if n == 0 {
		return nil, pipeerrors.ErrEmptyInput
	}
	dim := len(embeddings[0])

	if components > dim {
		components = dim
	}
	if components > n {
		components = n
	}
	if components < 1 {
		components = 1
	}

	data := mat.NewDense(n, dim, nil)
	for i, row := range embeddings {
		data.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, pipeerrors.Wrap(pipeerrors.ErrEmptyInput, "principal component decomposition failed")
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	var projected mat.Dense
	projected.Mul(data, vectors.Slice(0, dim, 0, components))

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &projected)
	}

	return out, nil
}
