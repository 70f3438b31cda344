package backend

import (
	_ "github.com/strata-ml/strata/ml/backend/cpu"
)
