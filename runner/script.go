package runner

import (
	"fmt"
	"os"
)

// hdbetScript builds the Python script executed inside the headless host for
// one extraction. The script loads the registered volume, runs the
// HDBrainExtractionTool module, waits synchronously until a segment appears
// or the wait budget runs out, saves both outputs and exits 0 on success,
// 1 on failure.
func hdbetScript(inVol, outVol, outSeg, logPath string, waitTimeoutS int) string {
	return fmt.Sprintf(`import sys, os, importlib, slicer, logging, time
from slicer.util import saveNode
logging.getLogger().setLevel(logging.INFO)
in_vol   = %q
out_vol  = %q
out_seg  = %q
log_path = %q
timeout_s = int(%d)

def log(msg):
    print(msg)
    try:
        if log_path:
            with open(log_path, 'a', encoding='utf-8') as f:
                f.write(msg+'\n')
    except Exception:
        pass

def seg_count(segNode):
    try:
        return segNode.GetSegmentation().GetNumberOfSegments()
    except Exception:
        return 0

try:
    log("[HDBET] loading volume: " + in_vol)
    n = slicer.util.loadVolume(in_vol)
    if not n:
        raise RuntimeError("Failed to load input volume")

    log("[HDBET] importing HDBrainExtractionTool")
    HDBET_mod = importlib.import_module('HDBrainExtractionTool')
    logic_cls = getattr(HDBET_mod, 'HDBrainExtractionToolLogic', None)
    if logic_cls is None:
        raise RuntimeError("HDBrainExtractionToolLogic not found (install SlicerHD-BET extension)")

    skull = slicer.mrmlScene.AddNewNodeByClass('vtkMRMLScalarVolumeNode','_tmp_BET')
    seg   = slicer.mrmlScene.AddNewNodeByClass('vtkMRMLSegmentationNode','_tmp_SEG')

    log("[HDBET] running...")
    logic = logic_cls()
    if hasattr(logic, 'process'):
        logic.process(n, skull, seg)
    else:
        logic.run(n, skull, seg)

    # Wait until at least one segment exists or timeout
    t0 = time.time()
    last_print = -1
    while seg_count(seg) < 1 and (time.time() - t0) < timeout_s:
        slicer.app.processEvents()
        time.sleep(1.0)
        elapsed = int(time.time() - t0)
        if elapsed // 30 != last_print // 30:
            log(f"[HDBET] waiting... {elapsed}s")
            last_print = elapsed

    if seg_count(seg) < 1:
        raise RuntimeError("HD-BET did not produce any segment before timeout")

    seg.SetReferenceImageGeometryParameterFromVolumeNode(n)

    log("[HDBET] saving skull-stripped: " + out_vol)
    ok1 = saveNode(skull, out_vol)
    log("[HDBET] saving segmentation:  " + out_seg)
    ok2 = saveNode(seg, out_seg)

    if not ok1 or not ok2:
        raise RuntimeError("Failed to save outputs")

    log("[HDBET] DONE")
    slicer.util.exit(0)
except Exception as e:
    log("[HDBET][ERROR] " + str(e))
    try:
        slicer.util.exit(1)
    except Exception:
        import sys as _sys; _sys.exit(1)
`, inVol, outVol, outSeg, logPath, waitTimeoutS)
}

// writeHDBETScript writes the extraction script to a temp file and returns
// its path. The caller removes it after the invocation.
func writeHDBETScript(inVol, outVol, outSeg, logPath string, waitTimeoutS int) (string, error) {
	f, err := os.CreateTemp("", "regbet_hdbet_*.py")
	if err != nil {
		return "", fmt.Errorf("failed to create script file: %w", err)
	}
	if _, err := f.WriteString(hdbetScript(inVol, outVol, outSeg, logPath, waitTimeoutS)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write script file: %w", err)
	}
	return f.Name(), nil
}
