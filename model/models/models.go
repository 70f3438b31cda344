package models

import (
	_ "github.com/strata-ml/strata/model/models/celeba"
)
