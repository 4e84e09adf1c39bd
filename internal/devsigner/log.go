package devsigner

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "devsigner")
