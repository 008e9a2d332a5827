package utils

//QuitKey is the key that stops a displayed tracking session
const QuitKey = 'q'

//WindowName is the title of the window frames are displayed in
const WindowName = "Frame"

//UploadFileMode is the permission of uploaded source videos, they are never modified
const UploadFileMode = 0444

//DirMode is the permission of data directories created at boot
const DirMode = 0766

//VideoContentTypes maps an output video format to the Content-Type it is served with
var VideoContentTypes = map[string]string{
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
}

//DefaultVideoContentType is used for formats missing from VideoContentTypes
const DefaultVideoContentType = "application/octet-stream"
