package pksa

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "pksa")
