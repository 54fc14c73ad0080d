// Package mask blanks polygon regions out of NV12 video frames in place.
//
// A frame is one contiguous buffer holding a width×height luma plane
// followed by a (width/2)×(height/2) plane of interleaved U/V byte pairs.
// Inside every configured polygon the luma bytes are set to 0 and the
// chroma pairs to (128, 128), which reads as black with no color.
//
// # Configuration text
//
// Polygons are configured as text:
//
//	0:0,100:0,100:100,0:100;50:50,200:50,200:200,50:200
//
// Points are "x:y" in luma pixel coordinates, separated by ",";
// polygons are separated by ";". Decode is lenient: a malformed point is
// dropped and a polygon left without points is omitted. Encode produces
// text that decodes back to the same MaskSet.
//
// # Masking
//
//	m := mask.New(logger)
//	m.SetConfiguration("0:0,100:0,100:100,0:100")
//	if err := m.SetGeometry(1280, 720); err != nil {
//	    return err
//	}
//	if err := m.Process(frame); err != nil {
//	    // drop the frame
//	}
//
// Chroma polygons are the luma polygons with every coordinate divided by
// two, truncating. The chroma mask can therefore be one sample narrower
// than the exact projection of the luma mask.
//
// # Thread Safety
//
// A Masker may be reconfigured from any goroutine while frames are being
// processed. The mask set and geometry are swapped as whole snapshots, so a
// frame is masked with either the old set or the new one, never a mix.
// Frames themselves must be handed to Process one at a time, in order, by
// the goroutine that owns them.
package mask
