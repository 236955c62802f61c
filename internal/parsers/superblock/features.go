package superblock

import "github.com/deploymenttheory/go-xfs/internal/types"

var roCompatNames = []struct {
	bit  uint32
	name string
}{
	{types.SbFeatRoCompatFinobt, "finobt"},
	{types.SbFeatRoCompatRmapbt, "rmapbt"},
	{types.SbFeatRoCompatReflink, "reflink"},
	{types.SbFeatRoCompatInobtcnt, "inobtcount"},
}

var incompatNames = []struct {
	bit  uint32
	name string
}{
	{types.SbFeatIncompatFtype, "ftype"},
	{types.SbFeatIncompatSpinodes, "sparse"},
	{types.SbFeatIncompatMetaUUID, "meta_uuid"},
	{types.SbFeatIncompatBigtime, "bigtime"},
	{types.SbFeatIncompatNeedsrepair, "needsrepair"},
	{types.SbFeatIncompatNrext64, "nrext64"},
}

// FeatureNames lists the known feature bits set on a version 5 superblock.
// Version 4 superblocks report only "v4".
func FeatureNames(sb *types.SbT) []string {
	if !sb.IsV5() {
		return []string{"v4"}
	}

	names := []string{"crc"}
	for _, f := range roCompatNames {
		if sb.FeaturesRoCompat&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	for _, f := range incompatNames {
		if sb.FeaturesIncompat&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}
