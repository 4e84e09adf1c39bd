package relay

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "relay")
