package workflow

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "workflow")
