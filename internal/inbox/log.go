package inbox

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "inbox")
