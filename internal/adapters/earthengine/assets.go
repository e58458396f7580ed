package earthengine

import (
	"net/url"
	"strings"
)

const publicCatalogProject = "earthengine-public"

// AssetName converts a catalog id into the REST resource name. Each path
// segment is escaped; callers validate the id first.
//
//	projects/glad/GLCLU2020/Forest_height_2020 -> projects/glad/assets/GLCLU2020/Forest_height_2020
//	USGS/SRTMGL1_003                           -> projects/earthengine-public/assets/USGS/SRTMGL1_003
func AssetName(id string) string {
	id = strings.Trim(id, "/")
	parts := strings.SplitN(id, "/", 3)
	if len(parts) >= 2 && parts[0] == "projects" {
		if len(parts) == 3 && strings.HasPrefix(parts[2], "assets/") {
			return escapePath(id)
		}
		if len(parts) == 2 {
			return "projects/" + url.PathEscape(parts[1]) + "/assets"
		}
		return "projects/" + url.PathEscape(parts[1]) + "/assets/" + escapePath(parts[2])
	}
	return "projects/" + publicCatalogProject + "/assets/" + escapePath(id)
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
