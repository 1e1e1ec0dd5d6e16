package analysis

import "errors"

// ErrNoMaterials indicates retrieval returned zero documents at the
// configured threshold.
var ErrNoMaterials = errors.New("no relevant materials found")

// ErrNoMaterialsAfterFiltering indicates retrieval found candidates but the
// relevance filter discarded every one of them. Kept distinct from
// ErrNoMaterials so operators can tell a too-strict retrieval threshold from
// a too-strict filter.
var ErrNoMaterialsAfterFiltering = errors.New("no relevant materials left after filtering")
