//Package monitoring holds the diagnostic logger shared by the library packages
package monitoring

import "log"

//Logf is the diagnostic logger used by session, video and jobs. It defaults to log.Printf;
//replace it with SetLogger to redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

//SetLogger replaces Logf. nil sets a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
